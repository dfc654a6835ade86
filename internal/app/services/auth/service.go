// Package auth authenticates back-office users and manages their accounts.
// Tokens are HS256 JWTs that are only honoured while a matching session row
// exists, so logout and password changes revoke them server-side.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/app/metrics"
	"github.com/R3E-Network/classledger/internal/app/storage"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
)

// Settings tune token lifetimes and login throttling.
type Settings struct {
	Secret        string
	TokenTTL      time.Duration
	RememberTTL   time.Duration
	MaxFailures   int
	FailureWindow time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.TokenTTL <= 0 {
		s.TokenTTL = 24 * time.Hour
	}
	if s.RememberTTL <= 0 {
		s.RememberTTL = 7 * 24 * time.Hour
	}
	if s.MaxFailures <= 0 {
		s.MaxFailures = 5
	}
	if s.FailureWindow <= 0 {
		s.FailureWindow = 5 * time.Minute
	}
	return s
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string         `json:"token"`
	User      user.Principal `json:"user"`
	ExpiresIn string         `json:"expiresIn"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
	RealName string    `json:"real_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
}

// ProfileInput is the editable part of an account.
type ProfileInput struct {
	RealName string `json:"real_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Service implements login, session checks and account management.
type Service struct {
	store    storage.Store
	settings Settings
	tokens   *TokenIssuer
	log      *logging.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for tokens, sessions and throttling.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs an auth service.
func New(store storage.Store, settings Settings, log *logging.Logger, opts ...Option) (*Service, error) {
	if strings.TrimSpace(settings.Secret) == "" {
		return nil, fmt.Errorf("auth: signing secret is required")
	}
	if log == nil {
		log = logging.NewDefault("auth")
	}
	s := &Service{store: store, settings: settings.withDefaults(), log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = NewTokenIssuer([]byte(settings.Secret), s.now)
	return s, nil
}

// Settings returns the effective settings.
func (s *Service) Settings() Settings { return s.settings }

// Login checks credentials and opens a session. Repeated failures for the
// same username and address are refused for FailureWindow.
func (s *Service) Login(ctx context.Context, username, password string, remember bool, ip string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, svcerrors.Validation("username and password are required")
	}
	now := s.now()
	entry := s.log.WithContext(ctx).WithField("username", username).WithField("ip", ip)

	failures, err := s.store.CountFailedLoginAttempts(ctx, username, ip, now.Add(-s.settings.FailureWindow))
	if err != nil {
		return LoginResult{}, err
	}
	if failures >= int64(s.settings.MaxFailures) {
		metrics.RecordLoginAttempt("throttled")
		s.log.LogSecurityEvent(ctx, "login_throttled", map[string]interface{}{"username": username, "ip": ip})
		return LoginResult{}, svcerrors.RateLimitExceeded(s.settings.MaxFailures, s.settings.FailureWindow.String()).
			WithDetails("reason", "too many failed login attempts")
	}

	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return LoginResult{}, err
	}
	if err != nil || !u.IsActive || !CheckPassword(u.PasswordHash, password) {
		if recErr := s.store.RecordLoginAttempt(ctx, user.LoginAttempt{
			Username: username, IPAddress: ip, Success: false, AttemptedAt: now.UTC(),
		}); recErr != nil {
			entry.WithError(recErr).Warn("failed to record login attempt")
		}
		metrics.RecordLoginAttempt("failure")
		entry.Warn("login rejected")
		return LoginResult{}, svcerrors.Unauthorized("invalid username or password")
	}

	ttl := s.settings.TokenTTL
	if remember {
		ttl = s.settings.RememberTTL
	}
	token, expires, err := s.tokens.Issue(u, ttl)
	if err != nil {
		return LoginResult{}, svcerrors.Internal("failed to issue token", err)
	}

	err = s.store.WithTx(ctx, func(repo storage.Repository) error {
		if err := repo.RecordLoginAttempt(ctx, user.LoginAttempt{
			Username: username, IPAddress: ip, Success: true, AttemptedAt: now.UTC(),
		}); err != nil {
			return err
		}
		if err := repo.TouchLastLogin(ctx, u.ID, now.UTC()); err != nil {
			return err
		}
		if _, err := repo.DeleteExpiredSessions(ctx, now.UTC()); err != nil {
			return err
		}
		_, err := repo.CreateSession(ctx, user.Session{
			UserID:    u.ID,
			TokenHash: HashToken(token),
			ExpiresAt: expires.UTC(),
			CreatedAt: now.UTC(),
		})
		return err
	})
	if err != nil {
		return LoginResult{}, err
	}

	metrics.RecordLoginAttempt("success")
	entry.WithField("user_id", u.ID).Info("login succeeded")
	return LoginResult{
		Token:     token,
		User:      user.PrincipalOf(u),
		ExpiresIn: humanTTL(ttl),
		ExpiresAt: expires.UTC(),
	}, nil
}

// Authenticate resolves a token to its user. The token must verify, its
// session must be live and its user active.
func (s *Service) Authenticate(ctx context.Context, token string) (user.Principal, error) {
	if token == "" {
		return user.Principal{}, svcerrors.Unauthorized("authentication required")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return user.Principal{}, err
	}

	sess, err := s.store.GetSessionByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Principal{}, svcerrors.InvalidToken(nil).WithDetails("reason", "session not found")
		}
		return user.Principal{}, err
	}
	if !sess.ExpiresAt.After(s.now()) {
		return user.Principal{}, svcerrors.TokenExpired()
	}

	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Principal{}, svcerrors.InvalidToken(nil).WithDetails("reason", "user not found")
		}
		return user.Principal{}, err
	}
	if !u.IsActive || u.ID != sess.UserID {
		return user.Principal{}, svcerrors.Unauthorized("account is disabled")
	}
	return user.PrincipalOf(u), nil
}

// Logout ends the session of token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.store.DeleteSessionByTokenHash(ctx, HashToken(token))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

func humanTTL(d time.Duration) string {
	day := 24 * time.Hour
	if d > day && d%day == 0 {
		return fmt.Sprintf("%dd", d/day)
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	return d.String()
}
