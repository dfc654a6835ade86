package student

import (
	"strings"
	"time"
)

// Student is a learner who buys and consumes class hours.
type Student struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Phone          string    `json:"phone" db:"phone"`
	RemainingHours int       `json:"remaining_hours" db:"remaining_hours"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Normalize trims the editable fields.
func (s *Student) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Phone = strings.TrimSpace(s.Phone)
}
