// Package system reports the health of the running deployment.
package system

import (
	"context"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/storage"
	"github.com/R3E-Network/classledger/internal/logging"
)

// Status is a snapshot of the database contents and auth activity.
type Status struct {
	Driver               string           `json:"driver"`
	Tables               map[string]int64 `json:"tables"`
	ActiveSessions       int64            `json:"active_sessions"`
	FailedLoginsLast24h  int64            `json:"failed_logins_24h"`
	ActiveDeductionRules int              `json:"active_deduction_configs"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// Service builds status snapshots.
type Service struct {
	store storage.Store
	log   *logging.Logger
	now   func() time.Time
}

// New constructs a status service. now may be nil.
func New(store storage.Store, log *logging.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logging.NewDefault("system")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, log: log, now: now}
}

// Status collects the current snapshot.
func (s *Service) Status(ctx context.Context) (Status, error) {
	now := s.now().UTC()
	tables, err := s.store.TableCounts(ctx)
	if err != nil {
		return Status{}, err
	}
	sessions, err := s.store.CountActiveSessions(ctx, now)
	if err != nil {
		return Status{}, err
	}
	failed, err := s.store.CountFailedLoginsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return Status{}, err
	}
	active, err := s.store.ListDeductionConfigs(ctx, deduction.ConfigFilter{ActiveOnly: true})
	if err != nil {
		return Status{}, err
	}
	return Status{
		Driver:               s.store.Driver(),
		Tables:               tables,
		ActiveSessions:       sessions,
		FailedLoginsLast24h:  failed,
		ActiveDeductionRules: len(active),
		GeneratedAt:          now,
	}, nil
}
