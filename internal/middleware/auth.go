// Package middleware provides the HTTP middleware chain of the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/errors"
	internalhttputil "github.com/R3E-Network/classledger/internal/httputil"
	"github.com/R3E-Network/classledger/internal/logging"
)

// TokenCookie is the cookie carrying the session token for browser clients.
const TokenCookie = "token"

type principalKey struct{}

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.Principal, error)
}

// AuthMiddleware requires a valid session token on every path except the
// skipped ones.
type AuthMiddleware struct {
	auth      Authenticator
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(auth Authenticator, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{auth: auth, logger: logger, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := TokenFromRequest(r)
		if token == "" {
			m.respondError(w, r, errors.Unauthorized("authentication required"))
			return
		}

		principal, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		m.logger.WithContext(ctx).WithField("username", principal.Username).Debug("authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("authentication failed", err)
		m.logger.WithContext(r.Context()).WithError(err).Error("authentication lookup failed")
	}
	internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	m.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
		"code":   serviceErr.Code,
	}).Warn("authentication failed")
}

// TokenFromRequest returns the bearer token or, failing that, the token
// cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// WithPrincipal stores the caller in ctx together with its logging fields.
func WithPrincipal(ctx context.Context, p user.Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	ctx = logging.WithUserID(ctx, p.UserID)
	ctx = logging.WithRole(ctx, string(p.Role))
	return context.WithValue(ctx, logging.UsernameKey, p.Username)
}

// PrincipalFrom returns the authenticated caller.
func PrincipalFrom(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(user.Principal)
	return p, ok
}

// RequireRole rejects callers whose role ranks below min.
func RequireRole(min user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				internalhttputil.Unauthorized(w, r, "authentication required")
				return
			}
			if !p.Role.AtLeast(min) {
				internalhttputil.WriteErrorResponse(w, r, http.StatusForbidden, string(errors.CodeForbidden),
					"insufficient permissions", map[string]interface{}{"required_role": min, "role": p.Role})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
