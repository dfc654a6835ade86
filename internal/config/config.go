// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration.
type Config struct {
	Env      string `env:"APP_ENV,default=development"`
	Timezone string `env:"APP_TIMEZONE,default=Local"`

	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Ledger    LedgerConfig
	Cleanup   CleanupConfig
	Bootstrap BootstrapConfig

	// DeductionPresets points at a YAML preset file. Empty selects the
	// embedded defaults.
	DeductionPresets string `env:"DEDUCTION_PRESETS"`
}

type ServerConfig struct {
	Addr           string        `env:"HTTP_ADDR,default=:3000"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT,default=120s"`
	AllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS,default=*"`
	// TrustedProxies lists proxy addresses or CIDR blocks whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER,default=sqlite"`
	DSN             string        `env:"DB_DSN,default=training.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE,default=true"`
}

type AuthConfig struct {
	JWTSecret          string        `env:"JWT_SECRET"`
	TokenTTL           time.Duration `env:"JWT_TTL,default=24h"`
	RememberTTL        time.Duration `env:"JWT_REMEMBER_TTL,default=168h"`
	CookieSecure       bool          `env:"COOKIE_SECURE,default=false"`
	MaxLoginFailures   int           `env:"LOGIN_MAX_FAILURES,default=5"`
	LoginFailureWindow time.Duration `env:"LOGIN_FAILURE_WINDOW,default=5m"`
}

type RateLimitConfig struct {
	Requests      int           `env:"RATE_LIMIT_REQUESTS,default=100"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW,default=15m"`
	LoginRequests int           `env:"LOGIN_RATE_LIMIT_REQUESTS,default=5"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

type LedgerConfig struct {
	IncomeDeleteWindow time.Duration `env:"INCOME_DELETE_WINDOW,default=24h"`
}

type CleanupConfig struct {
	Schedule                string        `env:"CLEANUP_SCHEDULE,default=@every 10m"`
	LoginAttemptRetention   time.Duration `env:"LOGIN_ATTEMPT_RETENTION,default=168h"`
	RateLimiterIdleDuration time.Duration `env:"RATE_LIMITER_IDLE,default=30m"`
}

type BootstrapConfig struct {
	AdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME,default=admin"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD,default=admin123"`
}

// developmentSecret signs tokens when JWT_SECRET is unset outside production.
const developmentSecret = "classledger-development-secret"

// Load reads .env (when present) and decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv decodes the current environment without touching .env files.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.Auth.JWTSecret == "" && !cfg.IsProduction() {
		cfg.Auth.JWTSecret = developmentSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV selects production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UsingDevelopmentSecret reports whether tokens are signed with the built-in
// secret.
func (c *Config) UsingDevelopmentSecret() bool {
	return c.Auth.JWTSecret == developmentSecret
}

// Validate checks values envdecode cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RememberTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Auth.MaxLoginFailures <= 0 || c.Auth.LoginFailureWindow <= 0 {
		return fmt.Errorf("login throttling values must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 || c.RateLimit.LoginRequests <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}
	if c.Ledger.IncomeDeleteWindow <= 0 {
		return fmt.Errorf("INCOME_DELETE_WINDOW must be positive")
	}
	for _, p := range c.TrustedProxies() {
		if !validProxy(p) {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", p)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func validProxy(p string) bool {
	if strings.Contains(p, "/") {
		_, _, err := net.ParseCIDR(p)
		return err == nil
	}
	return net.ParseIP(p) != nil
}

// Location resolves APP_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	return SplitAndTrimCSV(c.Server.AllowedOrigins)
}

// TrustedProxies splits TRUSTED_PROXIES.
func (c *Config) TrustedProxies() []string {
	return SplitAndTrimCSV(c.Server.TrustedProxies)
}

// SplitAndTrimCSV splits a comma separated list, dropping empty entries.
func SplitAndTrimCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
