package deduction

import (
	"time"

	"github.com/shopspring/decimal"
)

// DetailType classifies a manual deduction.
type DetailType string

const (
	DetailTeacherFee   DetailType = "teacher_fee"
	DetailMaterialFee  DetailType = "material_fee"
	DetailEquipmentFee DetailType = "equipment_fee"
	DetailOtherFee     DetailType = "other_fee"
)

// DetailTypes lists the accepted manual deduction types.
var DetailTypes = []DetailType{DetailTeacherFee, DetailMaterialFee, DetailEquipmentFee, DetailOtherFee}

// Valid reports whether t is a known detail type.
func (t DetailType) Valid() bool {
	for _, known := range DetailTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Detail is a manually recorded expense for a student.
type Detail struct {
	ID             int64           `json:"id" db:"id"`
	StudentID      int64           `json:"student_id" db:"student_id"`
	DeductionType  DetailType      `json:"deduction_type" db:"deduction_type"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Description    string          `json:"description" db:"description"`
	Date           string          `json:"date" db:"date"`
	Operator       string          `json:"operator" db:"operator"`
	RelatedClassID *int64          `json:"related_class_id" db:"related_class_id"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`

	StudentName       string  `json:"student_name,omitempty" db:"student_name"`
	StudentPhone      string  `json:"student_phone,omitempty" db:"student_phone"`
	RelatedClassHours *int    `json:"related_class_hours,omitempty" db:"related_class_hours"`
	RelatedClassDate  *string `json:"related_class_date,omitempty" db:"related_class_date"`
}

// DetailFilter narrows detail listings. Zero values mean no restriction.
type DetailFilter struct {
	StudentID int64
	Type      DetailType
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}
