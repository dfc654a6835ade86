// Package runtime wires configuration, the database and the HTTP server into
// a runnable process.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/R3E-Network/classledger/internal/app"
	"github.com/R3E-Network/classledger/internal/app/httpapi"
	"github.com/R3E-Network/classledger/internal/app/services/auth"
	"github.com/R3E-Network/classledger/internal/app/services/maintenance"
	"github.com/R3E-Network/classledger/internal/app/storage/sqlstore"
	"github.com/R3E-Network/classledger/internal/config"
	"github.com/R3E-Network/classledger/internal/logging"
	"github.com/R3E-Network/classledger/internal/middleware"
	"github.com/R3E-Network/classledger/internal/platform/database"
	"github.com/R3E-Network/classledger/internal/platform/migrations"
)

const shutdownTimeout = 10 * time.Second

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logging.Logger
	db         *sqlx.DB
	app        *app.Application
	handler    http.Handler
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewApplication constructs a new application instance from cfg.
func NewApplication(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.New("classledger", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.UsingDevelopmentSecret() {
		log.Warn("JWT_SECRET not set; signing tokens with the development secret")
	}

	application, db, limiters, err := Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	resolver, err := middleware.NewIPResolver(cfg.TrustedProxies())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	limiters[0].WithIPResolver(resolver)
	limiters[1].WithIPResolver(resolver)

	created, err := application.Auth.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.WithField("username", cfg.Bootstrap.AdminUsername).Warn("created bootstrap admin; change its password")
	}

	handler := httpapi.NewHandler(application, httpapi.Options{
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins(),
		CookieSecure:   cfg.Auth.CookieSecure,
		RateLimiter:    limiters[0],
		LoginLimiter:   limiters[1],
		IPResolver:     resolver,
	})

	return &Application{
		cfg:     cfg,
		log:     log,
		db:      db,
		app:     application,
		handler: handler,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}, nil
}

// Build opens the database, applies migrations when configured and
// constructs the services. The CLI uses it for commands that do not serve
// HTTP. The returned limiters are the global and login limiters, registered
// with the maintenance job for pruning.
func Build(ctx context.Context, cfg *config.Config, log *logging.Logger) (*app.Application, *sqlx.DB, [2]*middleware.RateLimiter, error) {
	var limiters [2]*middleware.RateLimiter

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, limiters, err
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, cfg.Database.Driver, cfg.Database.DSN); err != nil {
			return nil, nil, limiters, fmt.Errorf("apply migrations: %w", err)
		}
	}

	db, err := database.Open(ctx, database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, limiters, fmt.Errorf("open database: %w", err)
	}

	limiters[0] = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, log)
	limiters[1] = middleware.NewRateLimiter(cfg.RateLimit.LoginRequests, cfg.RateLimit.Window, log).
		WithMessage("too many login attempts, please try again later")

	application, err := app.New(sqlstore.New(db), app.Settings{
		Auth: auth.Settings{
			Secret:        cfg.Auth.JWTSecret,
			TokenTTL:      cfg.Auth.TokenTTL,
			RememberTTL:   cfg.Auth.RememberTTL,
			MaxFailures:   cfg.Auth.MaxLoginFailures,
			FailureWindow: cfg.Auth.LoginFailureWindow,
		},
		IncomeDeleteWindow: cfg.Ledger.IncomeDeleteWindow,
		Maintenance: maintenance.Settings{
			Schedule:         cfg.Cleanup.Schedule,
			AttemptRetention: cfg.Cleanup.LoginAttemptRetention,
			PrunerIdle:       cfg.Cleanup.RateLimiterIdleDuration,
		},
		Location: loc,
	}, log, app.WithPruners(limiters[0], limiters[1]))
	if err != nil {
		db.Close()
		return nil, nil, limiters, err
	}
	return application, db, limiters, nil
}

// App exposes the composed services.
func (a *Application) App() *app.Application { return a.app }

// Handler returns the HTTP handler, middleware included.
func (a *Application) Handler() http.Handler { return a.handler }

// Addr returns the bound address once Run is listening.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run starts background services and the HTTP server, and blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops background services, drains the HTTP server and closes the
// database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop services: %w", err))
	}
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return errors.Join(errs...)
}
