// Package deduction models fee rules that reduce profit and the manual
// expense records kept per student.
package deduction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type selects how a rule's value is applied.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
	TypePerHour    Type = "per_hour"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypePercentage, TypeFixed, TypePerHour:
		return true
	}
	return false
}

// Frequency selects when a rule is charged: once on registration or on
// every recharge.
type Frequency string

const (
	FrequencyOnce     Frequency = "once"
	FrequencyMultiple Frequency = "multiple"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	return f == FrequencyOnce || f == FrequencyMultiple
}

// Config is a deduction rule.
type Config struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Type        Type            `json:"type" db:"type"`
	Value       decimal.Decimal `json:"value" db:"value"`
	Description string          `json:"description" db:"description"`
	Frequency   Frequency       `json:"frequency" db:"frequency"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ConfigFilter narrows config listings.
type ConfigFilter struct {
	ActiveOnly bool
	Frequency  Frequency
}

// Assignment links a rule to a student.
type Assignment struct {
	ID            int64      `json:"id" db:"id"`
	StudentID     int64      `json:"student_id" db:"student_id"`
	ConfigID      int64      `json:"deduction_config_id" db:"deduction_config_id"`
	AppliedCount  int        `json:"applied_count" db:"applied_count"`
	LastAppliedAt *time.Time `json:"last_applied_at" db:"last_applied_at"`
}

// Applied is a rule as attached to one student.
type Applied struct {
	AssignmentID  int64           `json:"student_deduction_id" db:"assignment_id"`
	ConfigID      int64           `json:"id" db:"config_id"`
	Name          string          `json:"name" db:"name"`
	Type          Type            `json:"type" db:"type"`
	Value         decimal.Decimal `json:"value" db:"value"`
	Frequency     Frequency       `json:"frequency" db:"frequency"`
	Description   string          `json:"description" db:"description"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	AppliedCount  int             `json:"applied_count" db:"applied_count"`
	LastAppliedAt *time.Time      `json:"last_applied_at" db:"last_applied_at"`
}

// Option is an active rule with the student's selection state.
type Option struct {
	Config
	AssignmentID  *int64     `json:"student_deduction_id" db:"assignment_id"`
	AppliedCount  int        `json:"applied_count" db:"applied_count"`
	LastAppliedAt *time.Time `json:"last_applied_at" db:"last_applied_at"`
	Selected      bool       `json:"selected" db:"-"`
}
