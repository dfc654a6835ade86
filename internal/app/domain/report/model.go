package report

import "github.com/shopspring/decimal"

// Summary is the dashboard statistics for a period.
type Summary struct {
	Period         Period          `json:"period"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	IncomeCount    int64           `json:"income_count"`
	TotalStudents  int64           `json:"total_students"`
	TotalHours     int64           `json:"total_hours"`
	TotalClasses   int64           `json:"total_classes"`
	TotalHoursUsed int64           `json:"total_hours_used"`
	NewStudents    int64           `json:"new_students"`
	RechargeHours  int64           `json:"recharge_hours"`
}

// IncomeTotals aggregates income rows.
type IncomeTotals struct {
	Amount decimal.Decimal `db:"amount"`
	Count  int64           `db:"count"`
	Hours  int64           `db:"hours"`
}

// ClassTotals aggregates class rows.
type ClassTotals struct {
	Count int64 `db:"count"`
	Hours int64 `db:"hours"`
}

// StudentIncome aggregates one student's income.
type StudentIncome struct {
	Total       decimal.Decimal `db:"total"`
	Count       int64           `db:"count"`
	FirstAmount decimal.Decimal `db:"first_amount"`
}

// IncomePoint is one month of income.
type IncomePoint struct {
	Month string          `json:"month" db:"month"`
	Total decimal.Decimal `json:"total" db:"total"`
	Count int64           `json:"count" db:"count"`
}

// HoursPoint is one month of consumed hours.
type HoursPoint struct {
	Month string `json:"month" db:"month"`
	Total int64  `json:"total" db:"total"`
	Count int64  `json:"count" db:"count"`
}

// TypeTotal is the manual deduction total for one detail type.
type TypeTotal struct {
	DeductionType string          `json:"deduction_type" db:"deduction_type"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Count         int64           `json:"count" db:"count"`
}
