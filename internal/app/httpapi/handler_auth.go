package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/R3E-Network/classledger/internal/app/services/auth"
	"github.com/R3E-Network/classledger/internal/httputil"
	"github.com/R3E-Network/classledger/internal/middleware"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"driver":    h.app.Store().Driver(),
		"timestamp": time.Now().UTC(),
	}, "")
}

func (h *handler) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		RememberMe bool   `json:"rememberMe"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}

	res, err := h.app.Auth.Login(r.Context(), payload.Username, payload.Password, payload.RememberMe, h.ips.ClientIP(r))
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}

	middleware.AnnotateActor(r.Context(), res.User.UserID, res.User.Username)
	middleware.Annotate(r.Context(), res.User.UserID, "user login: "+res.User.Username)
	h.setTokenCookie(w, res.Token, res.ExpiresAt)
	httputil.WriteSuccess(w, http.StatusOK, res, "login successful")
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.app.Auth.Logout(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), p.UserID, "user logout: "+p.Username)
	h.clearTokenCookie(w)
	httputil.WriteSuccess(w, http.StatusOK, nil, "logout successful")
}

func (h *handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}
	u, err := h.app.Auth.Register(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), u.ID, fmt.Sprintf("registered user %s (%s)", u.Username, u.Role))
	httputil.WriteSuccess(w, http.StatusCreated, u, "user registered")
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.app.Auth.Profile(r.Context(), p.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, u, "")
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in auth.ProfileInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}
	u, err := h.app.Auth.UpdateProfile(r.Context(), p.UserID, in)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, u, "profile updated")
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.app.Auth.ChangePassword(r.Context(), p.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), p.UserID, "password changed: "+p.Username)
	// Every session of the user was revoked, including this one.
	h.clearTokenCookie(w)
	httputil.WriteSuccess(w, http.StatusOK, nil, "password changed, please log in again")
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, map[string]interface{}{"user": p}, "token valid")
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Auth.ListUsers(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, users, "")
}

func (h *handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var payload struct {
		IsActive *bool `json:"is_active"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	if payload.IsActive == nil {
		httputil.BadRequest(w, r, "is_active is required")
		return
	}
	u, err := h.app.Auth.SetUserActive(r.Context(), p.UserID, id, *payload.IsActive)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	state := "disabled"
	if u.IsActive {
		state = "enabled"
	}
	middleware.Annotate(r.Context(), u.ID, fmt.Sprintf("user %s %s", u.Username, state))
	httputil.WriteSuccess(w, http.StatusOK, u, "user status updated")
}
