package storage

import (
	"context"
	"errors"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/domain/ledger"
	"github.com/R3E-Network/classledger/internal/app/domain/oplog"
	"github.com/R3E-Network/classledger/internal/app/domain/report"
	"github.com/R3E-Network/classledger/internal/app/domain/student"
	"github.com/R3E-Network/classledger/internal/app/domain/user"
)

// ErrNotApplied is returned when a guarded update matched no row.
var ErrNotApplied = errors.New("storage: conditional update not applied")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("storage: duplicate key")

// StudentStore persists students.
type StudentStore interface {
	CreateStudent(ctx context.Context, s student.Student) (student.Student, error)
	GetStudent(ctx context.Context, id int64) (student.Student, error)
	GetStudentByPhone(ctx context.Context, phone string) (student.Student, error)
	ListStudents(ctx context.Context) ([]student.Student, error)
	AddStudentHours(ctx context.Context, id int64, hours int) error
	// DeductStudentHours returns ErrNotApplied when the student has fewer
	// than hours remaining.
	DeductStudentHours(ctx context.Context, id int64, hours int) error
	DeleteStudent(ctx context.Context, id int64) error
}

// LedgerStore persists income and class records.
type LedgerStore interface {
	CreateIncome(ctx context.Context, inc ledger.Income) (ledger.Income, error)
	GetIncome(ctx context.Context, id int64) (ledger.Income, error)
	ListIncomeByStudent(ctx context.Context, studentID int64) ([]ledger.Income, error)
	DeleteIncome(ctx context.Context, id int64) error
	DeleteIncomeByStudent(ctx context.Context, studentID int64) error

	CreateClass(ctx context.Context, c ledger.Class) (ledger.Class, error)
	GetClass(ctx context.Context, id int64) (ledger.Class, error)
	ListClassesByStudent(ctx context.Context, studentID int64) ([]ledger.Class, error)
	CountClassesCreatedAfter(ctx context.Context, studentID int64, after time.Time) (int64, error)
	DeleteClassesByStudent(ctx context.Context, studentID int64) error
}

// DeductionStore persists deduction rules and their student assignments.
type DeductionStore interface {
	CreateDeductionConfig(ctx context.Context, cfg deduction.Config) (deduction.Config, error)
	UpdateDeductionConfig(ctx context.Context, cfg deduction.Config) (deduction.Config, error)
	GetDeductionConfig(ctx context.Context, id int64) (deduction.Config, error)
	ListDeductionConfigs(ctx context.Context, filter deduction.ConfigFilter) ([]deduction.Config, error)

	AttachStudentDeduction(ctx context.Context, a deduction.Assignment) error
	ListStudentDeductions(ctx context.Context, studentID int64) ([]deduction.Applied, error)
	ListStudentDeductionOptions(ctx context.Context, studentID int64) ([]deduction.Option, error)
	IncrementStudentDeduction(ctx context.Context, assignmentID int64, at time.Time) error
	DetachStudentDeduction(ctx context.Context, assignmentID int64) error
	DeleteStudentDeductions(ctx context.Context, studentID int64) error
}

// DetailStore persists manual deduction records.
type DetailStore interface {
	CreateDeductionDetail(ctx context.Context, d deduction.Detail) (deduction.Detail, error)
	UpdateDeductionDetail(ctx context.Context, d deduction.Detail) (deduction.Detail, error)
	GetDeductionDetail(ctx context.Context, id int64) (deduction.Detail, error)
	DeleteDeductionDetail(ctx context.Context, id int64) error
	DeleteDeductionDetailsByStudent(ctx context.Context, studentID int64) error
	// ListDeductionDetails returns one page and the total matching count.
	ListDeductionDetails(ctx context.Context, filter deduction.DetailFilter) ([]deduction.Detail, int64, error)
}

// UserStore persists back-office accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUserProfile(ctx context.Context, id int64, realName, email, phone string) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	CountUsersByRole(ctx context.Context, role user.Role) (int64, error)
}

// SessionStore persists sessions and login attempts.
type SessionStore interface {
	CreateSession(ctx context.Context, s user.Session) (user.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (user.Session, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID int64) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	RecordLoginAttempt(ctx context.Context, a user.LoginAttempt) error
	CountFailedLoginAttempts(ctx context.Context, username, ip string, since time.Time) (int64, error)
	DeleteLoginAttemptsBefore(ctx context.Context, before time.Time) (int64, error)
}

// OperationLogStore persists the audit trail.
type OperationLogStore interface {
	CreateOperationLog(ctx context.Context, e oplog.Entry) (oplog.Entry, error)
	ListOperationLogs(ctx context.Context, filter oplog.Filter) ([]oplog.Entry, error)
}

// ReportStore answers aggregate queries. An All window disables the lower
// bound.
type ReportStore interface {
	IncomeTotals(ctx context.Context, w report.Window) (report.IncomeTotals, error)
	ClassTotals(ctx context.Context, w report.Window) (report.ClassTotals, error)
	CountStudents(ctx context.Context, w report.Window) (int64, error)
	SumRemainingHours(ctx context.Context) (int64, error)
	MonthlyIncome(ctx context.Context, fromDate string) ([]report.IncomePoint, error)
	MonthlyHours(ctx context.Context, fromDate string) ([]report.HoursPoint, error)
	DetailTotalsByType(ctx context.Context, w report.Window) ([]report.TypeTotal, error)

	StudentIncome(ctx context.Context, studentID int64) (report.StudentIncome, error)
	StudentHoursUsed(ctx context.Context, studentID int64) (int64, error)
	StudentDetailTotal(ctx context.Context, studentID int64) (report.TypeTotal, error)

	TableCounts(ctx context.Context) (map[string]int64, error)
	CountActiveSessions(ctx context.Context, now time.Time) (int64, error)
	CountFailedLoginsSince(ctx context.Context, since time.Time) (int64, error)
}

// Repository is every store behind one handle.
type Repository interface {
	StudentStore
	LedgerStore
	DeductionStore
	DetailStore
	UserStore
	SessionStore
	OperationLogStore
	ReportStore
}

// Store is a Repository that can open transactions. fn receives a
// Repository bound to the transaction; the transaction commits when fn
// returns nil and rolls back otherwise.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(Repository) error) error
	Driver() string
}
