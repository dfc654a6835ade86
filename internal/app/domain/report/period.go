// Package report holds the reporting periods and the shapes returned by the
// statistics and profit endpoints.
package report

import (
	"fmt"
	"time"
)

// Period is a named reporting window ending now.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod parses a query value. Empty selects all.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodAll, nil
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("invalid period %q (want today, week, month or all)", s)
}

// Window bounds a period. Business dates (income, classes, details) fall
// within FromDate..ToDate inclusive, so entries dated after today are left
// out; creation timestamps compare against FromTime.
type Window struct {
	Period   Period
	All      bool
	FromDate string
	ToDate   string
	FromTime time.Time
}

// WindowFor returns the window of p at now, with days starting at midnight
// in now's location and weeks starting on Monday.
func WindowFor(p Period, now time.Time) Window {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var start time.Time
	switch p {
	case PeriodToday:
		start = midnight
	case PeriodWeek:
		offset := (int(midnight.Weekday()) + 6) % 7
		start = midnight.AddDate(0, 0, -offset)
	case PeriodMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	default:
		return Window{Period: PeriodAll, All: true}
	}
	return Window{
		Period:   p,
		FromDate: start.Format("2006-01-02"),
		ToDate:   midnight.Format("2006-01-02"),
		FromTime: start.UTC(),
	}
}

// TrendStart returns the first day of the month months-1 months before now.
func TrendStart(months int, now time.Time) string {
	y, m, _ := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -(months - 1), 0).Format("2006-01-02")
}
