// Package deductions manages fee rules, their assignment to students and
// the manual expense records kept per student.
package deductions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/storage"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
)

var hundred = decimal.NewFromInt(100)

// ConfigInput is a rule as submitted by a client. Pointer fields
// distinguish missing values from zero.
type ConfigInput struct {
	Name        string              `json:"name"`
	Type        deduction.Type      `json:"type"`
	Value       *decimal.Decimal    `json:"value"`
	Description string              `json:"description"`
	Frequency   deduction.Frequency `json:"frequency"`
	IsActive    *bool               `json:"is_active"`
}

func (in ConfigInput) toConfig() (deduction.Config, error) {
	cfg := deduction.Config{
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Frequency:   in.Frequency,
		IsActive:    true,
	}
	if cfg.Name == "" {
		return cfg, svcerrors.Validation("name is required")
	}
	if !cfg.Type.Valid() {
		return cfg, svcerrors.Validation("type must be one of percentage, fixed, per_hour")
	}
	if in.Value == nil {
		return cfg, svcerrors.Validation("value is required")
	}
	cfg.Value = *in.Value
	if cfg.Value.IsNegative() {
		return cfg, svcerrors.Validation("value must not be negative")
	}
	if cfg.Type == deduction.TypePercentage && cfg.Value.GreaterThan(hundred) {
		return cfg, svcerrors.Validation("percentage value must not exceed 100")
	}
	if cfg.Frequency == "" {
		cfg.Frequency = deduction.FrequencyOnce
	}
	if !cfg.Frequency.Valid() {
		return cfg, svcerrors.Validation("frequency must be once or multiple")
	}
	if in.IsActive != nil {
		cfg.IsActive = *in.IsActive
	}
	return cfg, nil
}

// Service owns deduction rules and details.
type Service struct {
	store storage.Store
	log   *logging.Logger
}

// New constructs a deductions service.
func New(store storage.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("deductions")
	}
	return &Service{store: store, log: log}
}

// CreateConfig validates and stores a new rule.
func (s *Service) CreateConfig(ctx context.Context, in ConfigInput) (deduction.Config, error) {
	cfg, err := in.toConfig()
	if err != nil {
		return deduction.Config{}, err
	}
	created, err := s.store.CreateDeductionConfig(ctx, cfg)
	if err != nil {
		return deduction.Config{}, err
	}
	s.log.WithContext(ctx).
		WithField("config_id", created.ID).
		WithField("type", created.Type).
		WithField("frequency", created.Frequency).
		Info("deduction config created")
	return created, nil
}

// ListConfigs returns every rule, active or not.
func (s *Service) ListConfigs(ctx context.Context) ([]deduction.Config, error) {
	return s.store.ListDeductionConfigs(ctx, deduction.ConfigFilter{})
}

// UpdateConfig replaces a rule.
func (s *Service) UpdateConfig(ctx context.Context, id int64, in ConfigInput) (deduction.Config, error) {
	cfg, err := in.toConfig()
	if err != nil {
		return deduction.Config{}, err
	}
	cfg.ID = id
	updated, err := s.store.UpdateDeductionConfig(ctx, cfg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return deduction.Config{}, svcerrors.NotFound("deduction config")
		}
		return deduction.Config{}, err
	}
	s.log.WithContext(ctx).WithField("config_id", id).Info("deduction config updated")
	return updated, nil
}

// Seed creates presets when no rule exists yet. It returns the number of
// rules created; an already configured table is left untouched.
func (s *Service) Seed(ctx context.Context, presets []ConfigInput) (int, error) {
	configs := make([]deduction.Config, 0, len(presets))
	for i, in := range presets {
		cfg, err := in.toConfig()
		if err != nil {
			return 0, fmt.Errorf("preset %d: %w", i, err)
		}
		configs = append(configs, cfg)
	}

	created := 0
	err := s.store.WithTx(ctx, func(tx storage.Repository) error {
		existing, err := tx.ListDeductionConfigs(ctx, deduction.ConfigFilter{})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for _, cfg := range configs {
			if _, err := tx.CreateDeductionConfig(ctx, cfg); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.WithContext(ctx).WithField("created", created).Info("deduction presets seeded")
	return created, nil
}

// StudentDeductions lists every active rule with the student's selection.
func (s *Service) StudentDeductions(ctx context.Context, studentID int64) ([]deduction.Option, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, notFound(err, "student")
	}
	return s.store.ListStudentDeductionOptions(ctx, studentID)
}

// SetStudentDeductions replaces the rules attached to a student. Newly
// attached rules start with no applications.
func (s *Service) SetStudentDeductions(ctx context.Context, studentID int64, configIDs []int64) ([]deduction.Applied, error) {
	ids := make([]int64, 0, len(configIDs))
	seen := make(map[int64]bool, len(configIDs))
	for _, id := range configIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var applied []deduction.Applied
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetStudent(ctx, studentID); err != nil {
			return notFound(err, "student")
		}
		for _, id := range ids {
			if _, err := repo.GetDeductionConfig(ctx, id); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return svcerrors.BadRequest("unknown deduction config").WithDetails("deduction_config_id", id)
				}
				return err
			}
		}
		current, err := repo.ListStudentDeductions(ctx, studentID)
		if err != nil {
			return err
		}
		// Kept rules retain their applied counts; only new rules start at zero.
		attached := make(map[int64]bool, len(current))
		for _, a := range current {
			attached[a.ConfigID] = true
			if !seen[a.ConfigID] {
				if err := repo.DetachStudentDeduction(ctx, a.AssignmentID); err != nil {
					return err
				}
			}
		}
		for _, id := range ids {
			if attached[id] {
				continue
			}
			if err := repo.AttachStudentDeduction(ctx, deduction.Assignment{StudentID: studentID, ConfigID: id}); err != nil {
				return err
			}
		}
		applied, err = repo.ListStudentDeductions(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).
		WithField("student_id", studentID).
		WithField("deductions", len(ids)).
		Info("student deductions updated")
	return applied, nil
}

func notFound(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return svcerrors.NotFound(resource)
	}
	return err
}
