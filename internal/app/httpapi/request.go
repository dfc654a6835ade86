package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/httputil"
	"github.com/R3E-Network/classledger/internal/middleware"
)

// pathID parses the {id} route variable, writing a 400 when it is not a
// positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, r, "invalid id: "+raw)
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		httputil.BadRequest(w, r, key+" must be an integer")
		return 0, false
	}
	return v, true
}

// queryID reads an optional positive id query parameter; zero means unset.
func queryID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		httputil.BadRequest(w, r, key+" must be a positive integer")
		return 0, false
	}
	return v, true
}

func principal(w http.ResponseWriter, r *http.Request) (user.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httputil.Unauthorized(w, r, "authentication required")
	}
	return p, ok
}
