// Package httputil holds the JSON envelope helpers used by every handler and
// middleware.
package httputil

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
)

// Envelope is the response body shared by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteJSON writes v as a JSON body with status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// WriteErrorResponse writes a failure envelope. Details, when present, are
// returned in the data field.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	if r != nil {
		if traceID := logging.GetTraceID(r.Context()); traceID != "" {
			w.Header().Set("X-Trace-ID", traceID)
		}
	}
	env := Envelope{Success: false, Message: message, Error: code}
	if len(details) > 0 {
		env.Data = details
	}
	WriteJSON(w, status, env)
}

// WriteServiceError maps err onto the envelope. ServiceErrors keep their
// status and code, missing rows become 404 and everything else is a 500
// whose cause is logged but not returned.
func WriteServiceError(w http.ResponseWriter, r *http.Request, log *logging.Logger, err error) {
	if svcErr := svcerrors.GetServiceError(err); svcErr != nil {
		if svcErr.HTTPStatus >= http.StatusInternalServerError && log != nil {
			log.WithContext(r.Context()).WithError(err).Error(svcErr.Message)
		}
		WriteErrorResponse(w, r, svcErr.HTTPStatus, string(svcErr.Code), svcErr.Message, svcErr.Details)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		WriteErrorResponse(w, r, http.StatusNotFound, string(svcerrors.CodeNotFound), "resource not found", nil)
		return
	}
	if log != nil {
		log.WithContext(r.Context()).WithError(err).Error("request failed")
	}
	WriteErrorResponse(w, r, http.StatusInternalServerError, string(svcerrors.CodeInternal), "internal server error", nil)
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteErrorResponse(w, r, http.StatusBadRequest, string(svcerrors.CodeBadRequest), message, nil)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteErrorResponse(w, r, http.StatusUnauthorized, string(svcerrors.CodeUnauthorized), message, nil)
}

func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteErrorResponse(w, r, http.StatusNotFound, string(svcerrors.CodeNotFound), message, nil)
}

// DecodeJSON decodes the request body into v, writing a 400 and returning
// false on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		BadRequest(w, r, "request body is required")
		return false
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			BadRequest(w, r, "request body is required")
		} else {
			BadRequest(w, r, "invalid JSON body")
		}
		return false
	}
	return true
}

// RequireUserID returns the authenticated user id or writes a 401.
func RequireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := logging.GetUserID(r.Context())
	if userID == 0 {
		Unauthorized(w, r, "authentication required")
		return 0, false
	}
	return userID, true
}
