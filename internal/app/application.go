package app

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/classledger/internal/app/services/auth"
	"github.com/R3E-Network/classledger/internal/app/services/deductions"
	"github.com/R3E-Network/classledger/internal/app/services/ledger"
	"github.com/R3E-Network/classledger/internal/app/services/maintenance"
	"github.com/R3E-Network/classledger/internal/app/services/oplog"
	"github.com/R3E-Network/classledger/internal/app/services/profit"
	"github.com/R3E-Network/classledger/internal/app/services/stats"
	"github.com/R3E-Network/classledger/internal/app/services/students"
	systemsvc "github.com/R3E-Network/classledger/internal/app/services/system"
	"github.com/R3E-Network/classledger/internal/app/storage"
	"github.com/R3E-Network/classledger/internal/app/system"
	"github.com/R3E-Network/classledger/internal/logging"
)

// Settings carries the knobs services need from configuration.
type Settings struct {
	Auth               auth.Settings
	IncomeDeleteWindow time.Duration
	Maintenance        maintenance.Settings
	// Location is the timezone business dates are recorded in.
	Location *time.Location
	// Now overrides the clock; tests freeze it.
	Now func() time.Time
}

func (s Settings) clock() func() time.Time {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	if s.Location == nil {
		return now
	}
	loc := s.Location
	return func() time.Time { return now().In(loc) }
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger
	store   storage.Store

	Students    *students.Service
	Ledger      *ledger.Service
	Deductions  *deductions.Service
	Profit      *profit.Service
	Stats       *stats.Service
	Auth        *auth.Service
	OpLog       *oplog.Service
	System      *systemsvc.Service
	Maintenance *maintenance.Job
}

// Option adjusts construction.
type Option func(*options)

type options struct {
	pruners []maintenance.Pruner
}

// WithPruners registers in-memory state the maintenance job prunes, such as
// rate limiters.
func WithPruners(pruners ...maintenance.Pruner) Option {
	return func(o *options) { o.pruners = append(o.pruners, pruners...) }
}

// New builds a fully initialised application over store.
func New(store storage.Store, settings Settings, log *logging.Logger, opts ...Option) (*Application, error) {
	if store == nil {
		return nil, fmt.Errorf("app: store is required")
	}
	if log == nil {
		log = logging.NewDefault("app")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	now := settings.clock()

	authService, err := auth.New(store, settings.Auth, log, auth.WithClock(now))
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}

	ledgerOpts := []ledger.Option{ledger.WithClock(now)}
	if settings.IncomeDeleteWindow > 0 {
		ledgerOpts = append(ledgerOpts, ledger.WithIncomeDeleteWindow(settings.IncomeDeleteWindow))
	}

	job := maintenance.New(store, settings.Maintenance, log,
		maintenance.WithClock(now),
		maintenance.WithPruners(o.pruners...),
	)

	manager := system.NewManager()
	if err := manager.Register(job); err != nil {
		return nil, fmt.Errorf("register %s: %w", job.Name(), err)
	}

	return &Application{
		manager:     manager,
		log:         log,
		store:       store,
		Students:    students.New(store, log, students.WithClock(now)),
		Ledger:      ledger.New(store, log, ledgerOpts...),
		Deductions:  deductions.New(store, log),
		Profit:      profit.New(store, log, profit.WithClock(now)),
		Stats:       stats.New(store, log, stats.WithClock(now)),
		Auth:        authService,
		OpLog:       oplog.New(store, log),
		System:      systemsvc.New(store, log, now),
		Maintenance: job,
	}, nil
}

// Store returns the backing store.
func (a *Application) Store() storage.Store { return a.store }

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
