// Package profit prices deduction rules against recorded income and
// reports what remains.
package profit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/domain/report"
	"github.com/R3E-Network/classledger/internal/app/storage"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
	"github.com/R3E-Network/classledger/internal/logging"
)

// StudentRef identifies the student of a report.
type StudentRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// StudentReport is the profit made on one student over its lifetime.
type StudentReport struct {
	Student StudentRef `json:"student"`
	Totals
	Deductions []Item `json:"deduction_details"`
}

// PeriodReport is the overall profit for a period.
type PeriodReport struct {
	Period report.Period `json:"period"`
	Totals
	Deductions []Item       `json:"deduction_details"`
	Manual     []ManualItem `json:"manual_deduction_details"`
}

// Service builds profit reports.
type Service struct {
	store storage.Repository
	log   *logging.Logger
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to resolve periods.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a profit service.
func New(store storage.Repository, log *logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.NewDefault("profit")
	}
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StudentReport prices every active rule attached to the student.
func (s *Service) StudentReport(ctx context.Context, studentID int64) (StudentReport, error) {
	st, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StudentReport{}, svcerrors.NotFound("student")
		}
		return StudentReport{}, err
	}
	income, err := s.store.StudentIncome(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	hours, err := s.store.StudentHoursUsed(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	assigned, err := s.store.ListStudentDeductions(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	manual, err := s.store.StudentDetailTotal(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}

	figures := StudentFigures{TotalIncome: income.Total, FirstIncome: income.FirstAmount, HoursUsed: hours}
	items := []Item{}
	for _, a := range assigned {
		if !a.IsActive {
			continue
		}
		items = append(items, StudentItem(a, figures))
	}

	out := StudentReport{
		Student:    StudentRef{ID: st.ID, Name: st.Name, Phone: st.Phone},
		Totals:     Summarize(income.Total, hours, items, manual.Total),
		Deductions: items,
	}
	roundItems(out.Deductions)
	return out, nil
}

// PeriodReport prices every active rule across all students for p.
func (s *Service) PeriodReport(ctx context.Context, p report.Period) (PeriodReport, error) {
	w := report.WindowFor(p, s.now())

	income, err := s.store.IncomeTotals(ctx, w)
	if err != nil {
		return PeriodReport{}, err
	}
	classes, err := s.store.ClassTotals(ctx, w)
	if err != nil {
		return PeriodReport{}, err
	}
	newStudents, err := s.store.CountStudents(ctx, w)
	if err != nil {
		return PeriodReport{}, err
	}
	configs, err := s.store.ListDeductionConfigs(ctx, deduction.ConfigFilter{ActiveOnly: true})
	if err != nil {
		return PeriodReport{}, err
	}
	byType, err := s.store.DetailTotalsByType(ctx, w)
	if err != nil {
		return PeriodReport{}, err
	}

	figures := PeriodFigures{
		Income:      income.Amount,
		IncomeCount: income.Count,
		NewStudents: newStudents,
		HoursUsed:   classes.Hours,
	}
	items := make([]Item, 0, len(configs))
	for _, cfg := range configs {
		items = append(items, PeriodItem(cfg, figures))
	}
	manualTotal := decimal.Zero
	manual := make([]ManualItem, 0, len(byType))
	for _, tt := range byType {
		manualTotal = manualTotal.Add(tt.Total)
		manual = append(manual, ManualItem{Type: tt.DeductionType, Amount: tt.Total.Round(2), Count: tt.Count})
	}

	out := PeriodReport{
		Period:     w.Period,
		Totals:     Summarize(income.Amount, classes.Hours, items, manualTotal),
		Deductions: items,
		Manual:     manual,
	}
	roundItems(out.Deductions)
	return out, nil
}
