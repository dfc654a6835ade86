// Package stats answers the dashboard queries.
package stats

import (
	"context"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/report"
	"github.com/R3E-Network/classledger/internal/app/storage"
	"github.com/R3E-Network/classledger/internal/logging"
)

const (
	DefaultTrendMonths = 12
	MaxTrendMonths     = 120
)

// Service computes summaries and monthly trends.
type Service struct {
	store storage.ReportStore
	log   *logging.Logger
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for periods and trends.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a stats service.
func New(store storage.ReportStore, log *logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.NewDefault("stats")
	}
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary returns the dashboard figures for p. Student and balance totals
// are not bounded by the period.
func (s *Service) Summary(ctx context.Context, p report.Period) (report.Summary, error) {
	w := report.WindowFor(p, s.now())

	income, err := s.store.IncomeTotals(ctx, w)
	if err != nil {
		return report.Summary{}, err
	}
	classes, err := s.store.ClassTotals(ctx, w)
	if err != nil {
		return report.Summary{}, err
	}
	students, err := s.store.CountStudents(ctx, report.Window{Period: report.PeriodAll, All: true})
	if err != nil {
		return report.Summary{}, err
	}
	newStudents, err := s.store.CountStudents(ctx, w)
	if err != nil {
		return report.Summary{}, err
	}
	remaining, err := s.store.SumRemainingHours(ctx)
	if err != nil {
		return report.Summary{}, err
	}

	return report.Summary{
		Period:         w.Period,
		TotalIncome:    income.Amount.Round(2),
		IncomeCount:    income.Count,
		TotalStudents:  students,
		TotalHours:     remaining,
		TotalClasses:   classes.Count,
		TotalHoursUsed: classes.Hours,
		NewStudents:    newStudents,
		RechargeHours:  income.Hours,
	}, nil
}

// IncomeTrend returns monthly income for the last months months.
func (s *Service) IncomeTrend(ctx context.Context, months int) ([]report.IncomePoint, error) {
	return s.store.MonthlyIncome(ctx, report.TrendStart(ClampMonths(months), s.now()))
}

// HoursTrend returns monthly consumed hours for the last months months.
func (s *Service) HoursTrend(ctx context.Context, months int) ([]report.HoursPoint, error) {
	return s.store.MonthlyHours(ctx, report.TrendStart(ClampMonths(months), s.now()))
}

// ClampMonths maps a requested trend length into 1..MaxTrendMonths, with
// zero or less selecting DefaultTrendMonths.
func ClampMonths(months int) int {
	switch {
	case months <= 0:
		return DefaultTrendMonths
	case months > MaxTrendMonths:
		return MaxTrendMonths
	}
	return months
}
