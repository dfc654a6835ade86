// Package oplog models the audit trail of mutating operations.
package oplog

import "time"

// Operation types recorded in the audit trail.
const (
	CreateStudent          = "CREATE_STUDENT"
	DeleteStudent          = "DELETE_STUDENT"
	AddIncome              = "ADD_INCOME"
	AddClass               = "ADD_CLASS"
	DeleteIncome           = "DELETE_INCOME"
	CreateDeductionConfig  = "CREATE_DEDUCTION_CONFIG"
	UpdateDeductionConfig  = "UPDATE_DEDUCTION_CONFIG"
	CreateStudentDeduction = "CREATE_STUDENT_DEDUCTION"
	CreateDeductionDetail  = "CREATE_DEDUCTION_DETAIL"
	UpdateDeductionDetail  = "UPDATE_DEDUCTION_DETAIL"
	DeleteDeductionDetail  = "DELETE_DEDUCTION_DETAIL"
	Login                  = "LOGIN"
	Logout                 = "LOGOUT"
	RegisterUser           = "REGISTER_USER"
	UpdateUserStatus       = "UPDATE_USER_STATUS"
	ChangePassword         = "CHANGE_PASSWORD"
)

// Entry is one audit record.
type Entry struct {
	ID            int64     `json:"id" db:"id"`
	OperationType string    `json:"operation_type" db:"operation_type"`
	TargetID      *int64    `json:"target_id" db:"target_id"`
	TargetType    string    `json:"target_type" db:"target_type"`
	Description   string    `json:"description" db:"description"`
	UserID        *int64    `json:"user_id" db:"user_id"`
	Username      *string   `json:"username,omitempty" db:"username"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Filter narrows listings.
type Filter struct {
	OperationType string
	UserID        int64
	Limit         int
}
