package sqlstore

import (
	"context"

	"github.com/R3E-Network/classledger/internal/app/domain/oplog"
)

func (s *Store) CreateOperationLog(ctx context.Context, e oplog.Entry) (oplog.Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO operation_logs (operation_type, target_id, target_type, description, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, e.OperationType, e.TargetID, e.TargetType, e.Description, e.UserID, e.CreatedAt)
	if err != nil {
		return oplog.Entry{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Store) ListOperationLogs(ctx context.Context, filter oplog.Filter) ([]oplog.Entry, error) {
	var conds conditions
	if filter.OperationType != "" {
		conds.add("ol.operation_type = ?", filter.OperationType)
	}
	if filter.UserID > 0 {
		conds.add("ol.user_id = ?", filter.UserID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	entries := []oplog.Entry{}
	err := s.selectAll(ctx, &entries, `
		SELECT ol.id, ol.operation_type, ol.target_id, ol.target_type, ol.description, ol.user_id,
		       ol.created_at, u.username
		FROM operation_logs ol
		LEFT JOIN users u ON u.id = ol.user_id`+conds.where()+`
		ORDER BY ol.created_at DESC, ol.id DESC
		LIMIT ?
	`, append(conds.args, limit)...)
	return entries, err
}
