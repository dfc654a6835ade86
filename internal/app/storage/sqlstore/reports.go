package sqlstore

import (
	"context"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/report"
)

// statusTables are counted by TableCounts.
var statusTables = []string{
	"students", "income", "classes", "deduction_configs", "student_deductions",
	"deduction_details", "users", "user_sessions", "login_attempts", "operation_logs",
}

func dateBound(column string, w report.Window) (string, []interface{}) {
	if w.All {
		return "", nil
	}
	return " WHERE " + column + " >= ? AND " + column + " <= ?", []interface{}{w.FromDate, w.ToDate}
}

func (s *Store) IncomeTotals(ctx context.Context, w report.Window) (report.IncomeTotals, error) {
	where, args := dateBound("date", w)
	var totals report.IncomeTotals
	err := s.get(ctx, &totals, `
		SELECT COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count, COALESCE(SUM(hours), 0) AS hours
		FROM income`+where, args...)
	return totals, err
}

func (s *Store) ClassTotals(ctx context.Context, w report.Window) (report.ClassTotals, error) {
	where, args := dateBound("date", w)
	var totals report.ClassTotals
	err := s.get(ctx, &totals, `
		SELECT COUNT(*) AS count, COALESCE(SUM(hours_used), 0) AS hours
		FROM classes`+where, args...)
	return totals, err
}

func (s *Store) CountStudents(ctx context.Context, w report.Window) (int64, error) {
	if w.All {
		return s.count(ctx, `SELECT COUNT(*) FROM students`)
	}
	return s.count(ctx, `SELECT COUNT(*) FROM students WHERE created_at >= ?`, w.FromTime.UTC())
}

func (s *Store) SumRemainingHours(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COALESCE(SUM(remaining_hours), 0) FROM students`)
}

func (s *Store) MonthlyIncome(ctx context.Context, fromDate string) ([]report.IncomePoint, error) {
	points := []report.IncomePoint{}
	err := s.selectAll(ctx, &points, `
		SELECT substr(date, 1, 7) AS month, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
		FROM income
		WHERE date >= ?
		GROUP BY substr(date, 1, 7)
		ORDER BY month
	`, fromDate)
	return points, err
}

func (s *Store) MonthlyHours(ctx context.Context, fromDate string) ([]report.HoursPoint, error) {
	points := []report.HoursPoint{}
	err := s.selectAll(ctx, &points, `
		SELECT substr(date, 1, 7) AS month, COALESCE(SUM(hours_used), 0) AS total, COUNT(*) AS count
		FROM classes
		WHERE date >= ?
		GROUP BY substr(date, 1, 7)
		ORDER BY month
	`, fromDate)
	return points, err
}

func (s *Store) DetailTotalsByType(ctx context.Context, w report.Window) ([]report.TypeTotal, error) {
	where, args := dateBound("date", w)
	totals := []report.TypeTotal{}
	err := s.selectAll(ctx, &totals, `
		SELECT deduction_type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
		FROM deduction_details`+where+`
		GROUP BY deduction_type
		ORDER BY deduction_type
	`, args...)
	return totals, err
}

func (s *Store) StudentIncome(ctx context.Context, studentID int64) (report.StudentIncome, error) {
	var inc report.StudentIncome
	err := s.get(ctx, &inc, `
		SELECT COALESCE(SUM(amount), 0) AS total,
		       COUNT(*) AS count,
		       COALESCE((SELECT fi.amount FROM income fi
		                 WHERE fi.student_id = ?
		                 ORDER BY fi.date, fi.id LIMIT 1), 0) AS first_amount
		FROM income
		WHERE student_id = ?
	`, studentID, studentID)
	return inc, err
}

func (s *Store) StudentHoursUsed(ctx context.Context, studentID int64) (int64, error) {
	return s.count(ctx, `SELECT COALESCE(SUM(hours_used), 0) FROM classes WHERE student_id = ?`, studentID)
}

func (s *Store) StudentDetailTotal(ctx context.Context, studentID int64) (report.TypeTotal, error) {
	var total report.TypeTotal
	err := s.get(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
		FROM deduction_details
		WHERE student_id = ?
	`, studentID)
	return total, err
}

func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(statusTables))
	for _, table := range statusTables {
		n, err := s.count(ctx, `SELECT COUNT(*) FROM `+table)
		if err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, nil
}

func (s *Store) CountActiveSessions(ctx context.Context, at time.Time) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM user_sessions WHERE expires_at > ?`, at.UTC())
}

func (s *Store) CountFailedLoginsSince(ctx context.Context, since time.Time) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM login_attempts WHERE success = ? AND attempted_at > ?`, false, since.UTC())
}
