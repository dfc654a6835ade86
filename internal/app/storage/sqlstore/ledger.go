package sqlstore

import (
	"context"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/ledger"
)

const (
	incomeColumns = `id, student_id, amount, hours, date, created_at`
	classColumns  = `id, student_id, hours_used, date, created_at`
)

func (s *Store) CreateIncome(ctx context.Context, inc ledger.Income) (ledger.Income, error) {
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO income (student_id, amount, hours, date, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, inc.StudentID, inc.Amount, inc.Hours, inc.Date, inc.CreatedAt)
	if err != nil {
		return ledger.Income{}, err
	}
	inc.ID = id
	return inc, nil
}

func (s *Store) GetIncome(ctx context.Context, id int64) (ledger.Income, error) {
	var inc ledger.Income
	err := s.get(ctx, &inc, `SELECT `+incomeColumns+` FROM income WHERE id = ?`, id)
	return inc, err
}

func (s *Store) ListIncomeByStudent(ctx context.Context, studentID int64) ([]ledger.Income, error) {
	records := []ledger.Income{}
	err := s.selectAll(ctx, &records, `
		SELECT `+incomeColumns+` FROM income
		WHERE student_id = ?
		ORDER BY date DESC, id DESC
	`, studentID)
	return records, err
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM income WHERE id = ?`, id)
}

func (s *Store) DeleteIncomeByStudent(ctx context.Context, studentID int64) error {
	_, err := s.exec(ctx, `DELETE FROM income WHERE student_id = ?`, studentID)
	return err
}

func (s *Store) CreateClass(ctx context.Context, c ledger.Class) (ledger.Class, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO classes (student_id, hours_used, date, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, c.StudentID, c.HoursUsed, c.Date, c.CreatedAt)
	if err != nil {
		return ledger.Class{}, err
	}
	c.ID = id
	return c, nil
}

func (s *Store) GetClass(ctx context.Context, id int64) (ledger.Class, error) {
	var c ledger.Class
	err := s.get(ctx, &c, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id)
	return c, err
}

func (s *Store) ListClassesByStudent(ctx context.Context, studentID int64) ([]ledger.Class, error) {
	records := []ledger.Class{}
	err := s.selectAll(ctx, &records, `
		SELECT `+classColumns+` FROM classes
		WHERE student_id = ?
		ORDER BY date DESC, id DESC
	`, studentID)
	return records, err
}

func (s *Store) CountClassesCreatedAfter(ctx context.Context, studentID int64, after time.Time) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM classes WHERE student_id = ? AND created_at > ?`, studentID, after.UTC())
}

func (s *Store) DeleteClassesByStudent(ctx context.Context, studentID int64) error {
	_, err := s.exec(ctx, `DELETE FROM classes WHERE student_id = ?`, studentID)
	return err
}
