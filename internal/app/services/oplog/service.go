// Package oplog records and queries the operation log.
package oplog

import (
	"context"

	"github.com/R3E-Network/classledger/internal/app/domain/oplog"
	"github.com/R3E-Network/classledger/internal/app/storage"
	"github.com/R3E-Network/classledger/internal/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service records and lists audit entries.
type Service struct {
	store storage.OperationLogStore
	log   *logging.Logger
}

// New constructs an operation log service.
func New(store storage.OperationLogStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("oplog")
	}
	return &Service{store: store, log: log}
}

// Record stores e. Failures are logged and swallowed so auditing never fails
// the operation being audited.
func (s *Service) Record(ctx context.Context, e oplog.Entry) {
	if e.OperationType == "" {
		return
	}
	if _, err := s.store.CreateOperationLog(ctx, e); err != nil {
		s.log.WithContext(ctx).
			WithError(err).
			WithField("operation_type", e.OperationType).
			Warn("record operation log failed")
	}
}

// List returns the newest entries matching filter.
func (s *Service) List(ctx context.Context, filter oplog.Filter) ([]oplog.Entry, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	return s.store.ListOperationLogs(ctx, filter)
}
