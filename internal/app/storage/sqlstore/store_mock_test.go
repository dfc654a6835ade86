package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/domain/student"
	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestDeductStudentHoursGuarded(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE students SET remaining_hours = remaining_hours - \\?").
		WithArgs(5, int64(1), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeductStudentHours(context.Background(), 1, 5)
	if !errors.Is(err, storage.ErrNotApplied) {
		t.Fatalf("expected ErrNotApplied, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteStudentMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM students WHERE id = \\?").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteStudent(context.Background(), 9); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET remaining_hours = remaining_hours \\+ \\?").
		WithArgs(10, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithTx(context.Background(), func(repo storage.Repository) error {
		if err := repo.AddStudentHours(context.Background(), 1, 10); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWithTxCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM income WHERE student_id = \\?").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(repo storage.Repository) error {
		return repo.DeleteIncomeByStudent(context.Background(), 3)
	})
	if err != nil {
		t.Fatalf("with tx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListDeductionConfigsFilters(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "type", "value", "description", "frequency", "is_active", "created_at", "updated_at"})
	mock.ExpectQuery("FROM deduction_configs WHERE is_active = \\? AND frequency = \\?").
		WithArgs(true, "once").
		WillReturnRows(rows)

	configs, err := store.ListDeductionConfigs(context.Background(), deductionFilterOnceActive())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(configs) != 0 {
		t.Fatalf("expected empty list, got %d", len(configs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func deductionFilterOnceActive() deduction.ConfigFilter {
	return deduction.ConfigFilter{ActiveOnly: true, Frequency: deduction.FrequencyOnce}
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO students").
		WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "students_phone_key"`})
	if _, err := store.CreateStudent(ctx, student.Student{Name: "Ann", Phone: "1"}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for student, got %v", err)
	}

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_username_key"`})
	if _, err := store.CreateUser(ctx, user.User{Username: "ann", Role: user.RoleOperator}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for user, got %v", err)
	}

	mock.ExpectQuery("INSERT INTO students").
		WillReturnError(&pq.Error{Code: "23502", Message: "null value in column"})
	_, err := store.CreateStudent(ctx, student.Student{Name: "Bob", Phone: "2"})
	if err == nil || errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("other constraint errors must pass through, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
