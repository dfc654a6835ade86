// Package ledger records recharges and consumed classes against a
// student's hour balance.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	domain "github.com/R3E-Network/classledger/internal/app/domain/ledger"
	"github.com/R3E-Network/classledger/internal/app/domain/student"
	"github.com/R3E-Network/classledger/internal/app/metrics"
	"github.com/R3E-Network/classledger/internal/app/storage"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
)

// DefaultIncomeDeleteWindow bounds how long after a recharge it may be
// deleted.
const DefaultIncomeDeleteWindow = 24 * time.Hour

// RechargeResult is the outcome of a recharge.
type RechargeResult struct {
	IncomeID          int64               `json:"income_id"`
	StudentID         int64               `json:"student_id"`
	Amount            decimal.Decimal     `json:"amount"`
	Hours             int                 `json:"hours"`
	Date              string              `json:"date"`
	RemainingHours    int                 `json:"remaining_hours"`
	AppliedDeductions []deduction.Applied `json:"applied_deductions"`
}

// ConsumeResult is the outcome of a consumed class.
type ConsumeResult struct {
	ClassID        int64  `json:"class_id"`
	StudentID      int64  `json:"student_id"`
	HoursUsed      int    `json:"hours_used"`
	RemainingHours int    `json:"remaining_hours"`
	Date           string `json:"date"`
}

// DeleteIncomeResult reports a reversed recharge.
type DeleteIncomeResult struct {
	DeletedIncome  domain.Income   `json:"deleted_income"`
	UpdatedStudent student.Student `json:"updated_student"`
}

// Service mutates hour balances together with their ledger rows.
type Service struct {
	store        storage.Store
	log          *logging.Logger
	now          func() time.Time
	deleteWindow time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Its location decides the business
// date of new records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIncomeDeleteWindow overrides DefaultIncomeDeleteWindow.
func WithIncomeDeleteWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.deleteWindow = d
		}
	}
}

// New constructs a ledger service.
func New(store storage.Store, log *logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.NewDefault("ledger")
	}
	s := &Service{store: store, log: log, now: time.Now, deleteWindow: DefaultIncomeDeleteWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recharge adds hours to a student, records the income and charges every
// active recurring deduction attached to the student.
func (s *Service) Recharge(ctx context.Context, studentID int64, amount decimal.Decimal, hours int) (RechargeResult, error) {
	if !amount.IsPositive() {
		return RechargeResult{}, svcerrors.Validation("amount must be greater than 0")
	}
	if hours <= 0 {
		return RechargeResult{}, svcerrors.Validation("hours must be a positive integer")
	}

	now := s.now()
	var result RechargeResult
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		if err := repo.AddStudentHours(ctx, studentID, hours); err != nil {
			return studentNotFound(err)
		}
		inc, err := repo.CreateIncome(ctx, domain.Income{
			StudentID: studentID,
			Amount:    amount,
			Hours:     hours,
			Date:      now.Format(domain.DateLayout),
			CreatedAt: now.UTC(),
		})
		if err != nil {
			return err
		}

		assigned, err := repo.ListStudentDeductions(ctx, studentID)
		if err != nil {
			return err
		}
		applied := []deduction.Applied{}
		for _, a := range assigned {
			if !a.IsActive || a.Frequency != deduction.FrequencyMultiple {
				continue
			}
			if err := repo.IncrementStudentDeduction(ctx, a.AssignmentID, now.UTC()); err != nil {
				return err
			}
			a.AppliedCount++
			at := now.UTC()
			a.LastAppliedAt = &at
			applied = append(applied, a)
		}

		st, err := repo.GetStudent(ctx, studentID)
		if err != nil {
			return err
		}
		result = RechargeResult{
			IncomeID:          inc.ID,
			StudentID:         studentID,
			Amount:            inc.Amount,
			Hours:             inc.Hours,
			Date:              inc.Date,
			RemainingHours:    st.RemainingHours,
			AppliedDeductions: applied,
		}
		return nil
	})
	if err != nil {
		return RechargeResult{}, err
	}

	metrics.RecordRecharge(amount)
	s.log.WithContext(ctx).
		WithField("student_id", studentID).
		WithField("income_id", result.IncomeID).
		WithField("hours", hours).
		Info("recharge recorded")
	return result, nil
}

// Consume records a class and takes its hours off the balance.
func (s *Service) Consume(ctx context.Context, studentID int64, hoursUsed int) (ConsumeResult, error) {
	if hoursUsed <= 0 {
		return ConsumeResult{}, svcerrors.Validation("hours_used must be a positive integer")
	}

	now := s.now()
	var result ConsumeResult
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		st, err := repo.GetStudent(ctx, studentID)
		if err != nil {
			return studentNotFound(err)
		}
		if st.RemainingHours < hoursUsed {
			return insufficientHours(st.RemainingHours, hoursUsed)
		}
		if err := repo.DeductStudentHours(ctx, studentID, hoursUsed); err != nil {
			if errors.Is(err, storage.ErrNotApplied) {
				return insufficientHours(st.RemainingHours, hoursUsed)
			}
			return err
		}
		class, err := repo.CreateClass(ctx, domain.Class{
			StudentID: studentID,
			HoursUsed: hoursUsed,
			Date:      now.Format(domain.DateLayout),
			CreatedAt: now.UTC(),
		})
		if err != nil {
			return err
		}
		result = ConsumeResult{
			ClassID:        class.ID,
			StudentID:      studentID,
			HoursUsed:      hoursUsed,
			RemainingHours: st.RemainingHours - hoursUsed,
			Date:           class.Date,
		}
		return nil
	})
	if err != nil {
		return ConsumeResult{}, err
	}

	metrics.RecordHoursConsumed(hoursUsed)
	s.log.WithContext(ctx).
		WithField("student_id", studentID).
		WithField("class_id", result.ClassID).
		WithField("hours_used", hoursUsed).
		Info("class recorded")
	return result, nil
}

// DeleteIncome reverses a recent recharge. It is refused once the delete
// window has passed, once the student has attended a later class, or when
// the hours have already been spent.
func (s *Service) DeleteIncome(ctx context.Context, incomeID int64) (DeleteIncomeResult, error) {
	now := s.now().UTC()
	var result DeleteIncomeResult
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		inc, err := repo.GetIncome(ctx, incomeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return svcerrors.NotFound("income record")
			}
			return err
		}
		if now.Sub(inc.CreatedAt) > s.deleteWindow {
			return svcerrors.New(svcerrors.CodeTimeLimit, http.StatusBadRequest,
				"income records can only be deleted within "+s.deleteWindow.String()+" of creation")
		}
		later, err := repo.CountClassesCreatedAfter(ctx, inc.StudentID, inc.CreatedAt)
		if err != nil {
			return err
		}
		if later > 0 {
			return svcerrors.New(svcerrors.CodeLaterClasses, http.StatusBadRequest,
				"classes were recorded after this recharge").WithDetails("later_classes", later)
		}
		st, err := repo.GetStudent(ctx, inc.StudentID)
		if err != nil {
			return studentNotFound(err)
		}
		if st.RemainingHours < inc.Hours {
			return insufficientHours(st.RemainingHours, inc.Hours)
		}

		if err := repo.DeleteIncome(ctx, inc.ID); err != nil {
			return err
		}
		if err := repo.DeductStudentHours(ctx, inc.StudentID, inc.Hours); err != nil {
			if errors.Is(err, storage.ErrNotApplied) {
				return insufficientHours(st.RemainingHours, inc.Hours)
			}
			return err
		}
		st.RemainingHours -= inc.Hours
		result = DeleteIncomeResult{DeletedIncome: inc, UpdatedStudent: st}
		return nil
	})
	if err != nil {
		return DeleteIncomeResult{}, err
	}

	s.log.WithContext(ctx).
		WithField("income_id", incomeID).
		WithField("student_id", result.UpdatedStudent.ID).
		Info("income deleted")
	return result, nil
}

func studentNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return svcerrors.NotFound("student")
	}
	return err
}

func insufficientHours(remaining, requested int) error {
	return svcerrors.New(svcerrors.CodeInsufficientHours, http.StatusBadRequest, "insufficient remaining hours").
		WithDetails("remaining_hours", remaining).
		WithDetails("requested_hours", requested)
}
