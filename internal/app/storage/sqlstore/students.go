package sqlstore

import (
	"context"

	"github.com/R3E-Network/classledger/internal/app/domain/student"
	"github.com/R3E-Network/classledger/internal/app/storage"
)

const studentColumns = `id, name, phone, remaining_hours, created_at`

func (s *Store) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO students (name, phone, remaining_hours, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, st.Name, st.Phone, st.RemainingHours, st.CreatedAt)
	if err != nil {
		return student.Student{}, duplicate(err)
	}
	st.ID = id
	return st, nil
}

func (s *Store) GetStudent(ctx context.Context, id int64) (student.Student, error) {
	var st student.Student
	err := s.get(ctx, &st, `SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	return st, err
}

func (s *Store) GetStudentByPhone(ctx context.Context, phone string) (student.Student, error) {
	var st student.Student
	err := s.get(ctx, &st, `SELECT `+studentColumns+` FROM students WHERE phone = ?`, phone)
	return st, err
}

func (s *Store) ListStudents(ctx context.Context) ([]student.Student, error) {
	students := []student.Student{}
	err := s.selectAll(ctx, &students, `SELECT `+studentColumns+` FROM students ORDER BY id`)
	return students, err
}

func (s *Store) AddStudentHours(ctx context.Context, id int64, hours int) error {
	return s.execOne(ctx, `UPDATE students SET remaining_hours = remaining_hours + ? WHERE id = ?`, hours, id)
}

func (s *Store) DeductStudentHours(ctx context.Context, id int64, hours int) error {
	result, err := s.exec(ctx, `
		UPDATE students SET remaining_hours = remaining_hours - ?
		WHERE id = ? AND remaining_hours >= ?
	`, hours, id, hours)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotApplied
	}
	return nil
}

func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM students WHERE id = ?`, id)
}
