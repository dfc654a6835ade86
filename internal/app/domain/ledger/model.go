// Package ledger holds the money-in and hours-out records of a student.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of business dates.
const DateLayout = "2006-01-02"

// Income is one recharge: money received and hours added.
type Income struct {
	ID        int64           `json:"id" db:"id"`
	StudentID int64           `json:"student_id" db:"student_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Hours     int             `json:"hours" db:"hours"`
	Date      string          `json:"date" db:"date"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Class is one attended class consuming hours.
type Class struct {
	ID        int64     `json:"id" db:"id"`
	StudentID int64     `json:"student_id" db:"student_id"`
	HoursUsed int       `json:"hours_used" db:"hours_used"`
	Date      string    `json:"date" db:"date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ValidDate reports whether s is a YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
