package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
)

type stubAuth struct {
	tokens map[string]user.Principal
	err    error
}

func (s stubAuth) Authenticate(_ context.Context, token string) (user.Principal, error) {
	if s.err != nil {
		return user.Principal{}, s.err
	}
	p, ok := s.tokens[token]
	if !ok {
		return user.Principal{}, errors.InvalidToken(nil)
	}
	return p, nil
}

func newTestAuth() *AuthMiddleware {
	auth := stubAuth{tokens: map[string]user.Principal{
		"admin-token":    {UserID: 1, Username: "admin", Role: user.RoleAdmin},
		"operator-token": {UserID: 2, Username: "olga", Role: user.RoleOperator},
	}}
	return NewAuthMiddleware(auth, logging.NewDiscard("test"), []string{"/health"})
}

func TestNewAuthMiddleware(t *testing.T) {
	m := newTestAuth()
	if len(m.skipPaths) != 1 || !m.skipPaths["/health"] {
		t.Fatalf("skipPaths = %v", m.skipPaths)
	}
}

func TestAuthMiddleware_Handler_SkipPaths(t *testing.T) {
	called := false
	handler := newTestAuth().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodOptions, "/students", nil),
	} {
		called = false
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if !called || rr.Code != http.StatusOK {
			t.Fatalf("%s %s: called=%v status=%d", req.Method, req.URL.Path, called, rr.Code)
		}
	}
}

func TestAuthMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantUser   int64
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "bearer token", header: "Bearer admin-token", wantStatus: http.StatusOK, wantUser: 1},
		{name: "lowercase scheme", header: "bearer operator-token", wantStatus: http.StatusOK, wantUser: 2},
		{name: "cookie token", cookie: "operator-token", wantStatus: http.StatusOK, wantUser: 2},
		{name: "wrong scheme", header: "Basic admin-token", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser int64
			handler := newTestAuth().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = logging.GetUserID(r.Context())
				if _, ok := PrincipalFrom(r.Context()); !ok {
					t.Error("principal missing from context")
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/students", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if gotUser != tt.wantUser {
				t.Fatalf("user id = %d, want %d", gotUser, tt.wantUser)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	m := NewAuthMiddleware(stubAuth{err: errors.TokenExpired()}, logging.NewDiscard("test"), nil)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"TOKEN_EXPIRED"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole(user.RoleTeacher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		role user.Role
		want int
	}{
		{"admin", user.RoleAdmin, http.StatusOK},
		{"teacher", user.RoleTeacher, http.StatusOK},
		{"operator", user.RoleOperator, http.StatusForbidden},
		{"anonymous", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/students/1/consume", nil)
			if tt.role != "" {
				req = req.WithContext(WithPrincipal(req.Context(), user.Principal{UserID: 3, Role: tt.role}))
			}
			rr := httptest.NewRecorder()
			gate.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
