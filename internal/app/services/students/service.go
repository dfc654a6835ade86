// Package students registers, lists and removes students together with
// their once-only deduction rules.
package students

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/domain/ledger"
	"github.com/R3E-Network/classledger/internal/app/domain/student"
	"github.com/R3E-Network/classledger/internal/app/metrics"
	"github.com/R3E-Network/classledger/internal/app/storage"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
)

// Registration is a newly created student and the one-off deductions
// charged on registration.
type Registration struct {
	student.Student
	AppliedDeductions []deduction.Config `json:"applied_deductions"`
}

// Detail is a student with its ledger history, newest first.
type Detail struct {
	student.Student
	IncomeRecords []ledger.Income `json:"income_records"`
	ClassRecords  []ledger.Class  `json:"class_records"`
}

// Service manages student records.
type Service struct {
	store storage.Store
	log   *logging.Logger
	now   func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a student service.
func New(store storage.Store, log *logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.NewDefault("students")
	}
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a student and attaches every active one-off deduction
// with one application already counted.
func (s *Service) Create(ctx context.Context, name, phone string) (Registration, error) {
	st := student.Student{Name: name, Phone: phone}
	st.Normalize()
	if st.Name == "" || st.Phone == "" {
		return Registration{}, svcerrors.Validation("name and phone are required")
	}

	var reg Registration
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetStudentByPhone(ctx, st.Phone); err == nil {
			return svcerrors.Conflict("phone number already registered")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		at := s.now().UTC()
		st.CreatedAt = at
		created, err := repo.CreateStudent(ctx, st)
		if errors.Is(err, storage.ErrDuplicate) {
			return svcerrors.Conflict("phone number already registered")
		}
		if err != nil {
			return err
		}

		configs, err := repo.ListDeductionConfigs(ctx, deduction.ConfigFilter{ActiveOnly: true, Frequency: deduction.FrequencyOnce})
		if err != nil {
			return err
		}
		for _, cfg := range configs {
			if err := repo.AttachStudentDeduction(ctx, deduction.Assignment{
				StudentID:     created.ID,
				ConfigID:      cfg.ID,
				AppliedCount:  1,
				LastAppliedAt: &at,
			}); err != nil {
				return err
			}
		}
		reg = Registration{Student: created, AppliedDeductions: configs}
		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	metrics.RecordStudentRegistered()
	s.log.WithContext(ctx).
		WithField("student_id", reg.ID).
		WithField("applied_deductions", len(reg.AppliedDeductions)).
		Info("student registered")
	return reg, nil
}

// List returns every student.
func (s *Service) List(ctx context.Context) ([]student.Student, error) {
	return s.store.ListStudents(ctx)
}

// Get returns a student with its income and class history.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return Detail{}, notFound(err)
	}
	income, err := s.store.ListIncomeByStudent(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	classes, err := s.store.ListClassesByStudent(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Student: st, IncomeRecords: income, ClassRecords: classes}, nil
}

// Delete removes a student and everything recorded against it.
func (s *Service) Delete(ctx context.Context, id int64) (student.Student, error) {
	var deleted student.Student
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		st, err := repo.GetStudent(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if err := repo.DeleteDeductionDetailsByStudent(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteStudentDeductions(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteIncomeByStudent(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteClassesByStudent(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteStudent(ctx, id); err != nil {
			return err
		}
		deleted = st
		return nil
	})
	if err != nil {
		return student.Student{}, err
	}

	s.log.WithContext(ctx).
		WithField("student_id", id).
		WithField("name", deleted.Name).
		Info("student deleted")
	return deleted, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return svcerrors.NotFound("student")
	}
	return err
}
