package sqlstore

import (
	"context"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
)

const configColumns = `id, name, type, value, description, frequency, is_active, created_at, updated_at`

func (s *Store) CreateDeductionConfig(ctx context.Context, cfg deduction.Config) (deduction.Config, error) {
	ts := now()
	cfg.CreatedAt = ts
	cfg.UpdatedAt = ts
	id, err := s.insert(ctx, `
		INSERT INTO deduction_configs (name, type, value, description, frequency, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, cfg.Name, cfg.Type, cfg.Value, cfg.Description, cfg.Frequency, cfg.IsActive, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return deduction.Config{}, err
	}
	cfg.ID = id
	return cfg, nil
}

func (s *Store) UpdateDeductionConfig(ctx context.Context, cfg deduction.Config) (deduction.Config, error) {
	err := s.execOne(ctx, `
		UPDATE deduction_configs
		SET name = ?, type = ?, value = ?, description = ?, frequency = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, cfg.Name, cfg.Type, cfg.Value, cfg.Description, cfg.Frequency, cfg.IsActive, now(), cfg.ID)
	if err != nil {
		return deduction.Config{}, err
	}
	return s.GetDeductionConfig(ctx, cfg.ID)
}

func (s *Store) GetDeductionConfig(ctx context.Context, id int64) (deduction.Config, error) {
	var cfg deduction.Config
	err := s.get(ctx, &cfg, `SELECT `+configColumns+` FROM deduction_configs WHERE id = ?`, id)
	return cfg, err
}

func (s *Store) ListDeductionConfigs(ctx context.Context, filter deduction.ConfigFilter) ([]deduction.Config, error) {
	var conds conditions
	if filter.ActiveOnly {
		conds.add("is_active = ?", true)
	}
	if filter.Frequency != "" {
		conds.add("frequency = ?", filter.Frequency)
	}
	configs := []deduction.Config{}
	err := s.selectAll(ctx, &configs,
		`SELECT `+configColumns+` FROM deduction_configs`+conds.where()+` ORDER BY frequency, id`,
		conds.args...)
	return configs, err
}

func (s *Store) AttachStudentDeduction(ctx context.Context, a deduction.Assignment) error {
	_, err := s.exec(ctx, `
		INSERT INTO student_deductions (student_id, deduction_config_id, applied_count, last_applied_at)
		VALUES (?, ?, ?, ?)
	`, a.StudentID, a.ConfigID, a.AppliedCount, a.LastAppliedAt)
	return err
}

func (s *Store) ListStudentDeductions(ctx context.Context, studentID int64) ([]deduction.Applied, error) {
	applied := []deduction.Applied{}
	err := s.selectAll(ctx, &applied, `
		SELECT sd.id AS assignment_id, dc.id AS config_id, dc.name, dc.type, dc.value, dc.frequency,
		       dc.description, dc.is_active, sd.applied_count, sd.last_applied_at
		FROM student_deductions sd
		JOIN deduction_configs dc ON dc.id = sd.deduction_config_id
		WHERE sd.student_id = ?
		ORDER BY dc.frequency, dc.id
	`, studentID)
	return applied, err
}

func (s *Store) ListStudentDeductionOptions(ctx context.Context, studentID int64) ([]deduction.Option, error) {
	options := []deduction.Option{}
	err := s.selectAll(ctx, &options, `
		SELECT dc.id, dc.name, dc.type, dc.value, dc.description, dc.frequency, dc.is_active,
		       dc.created_at, dc.updated_at,
		       sd.id AS assignment_id, COALESCE(sd.applied_count, 0) AS applied_count, sd.last_applied_at
		FROM deduction_configs dc
		LEFT JOIN student_deductions sd ON sd.deduction_config_id = dc.id AND sd.student_id = ?
		WHERE dc.is_active = ?
		ORDER BY dc.frequency, dc.id
	`, studentID, true)
	if err != nil {
		return nil, err
	}
	for i := range options {
		options[i].Selected = options[i].AssignmentID != nil
	}
	return options, nil
}

func (s *Store) IncrementStudentDeduction(ctx context.Context, assignmentID int64, at time.Time) error {
	return s.execOne(ctx, `
		UPDATE student_deductions
		SET applied_count = applied_count + 1, last_applied_at = ?
		WHERE id = ?
	`, at.UTC(), assignmentID)
}

func (s *Store) DetachStudentDeduction(ctx context.Context, assignmentID int64) error {
	return s.execOne(ctx, `DELETE FROM student_deductions WHERE id = ?`, assignmentID)
}

func (s *Store) DeleteStudentDeductions(ctx context.Context, studentID int64) error {
	_, err := s.exec(ctx, `DELETE FROM student_deductions WHERE student_id = ?`, studentID)
	return err
}
