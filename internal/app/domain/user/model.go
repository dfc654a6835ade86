// Package user models back-office accounts, their sessions and login
// attempts.
package user

import "time"

// Role is an access level. Roles are ordered: admin > teacher > operator.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTeacher  Role = "teacher"
	RoleOperator Role = "operator"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleTeacher:
		return 2
	case RoleOperator:
		return 1
	}
	return 0
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.rank() > 0 }

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.rank() >= min.rank()
}

// User is a back-office account.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	RealName     string     `json:"real_name" db:"real_name"`
	Email        string     `json:"email" db:"email"`
	Phone        string     `json:"phone" db:"phone"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Session is a server-side record of an issued token.
type Session struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// LoginAttempt records one login try.
type LoginAttempt struct {
	ID          int64     `db:"id"`
	Username    string    `db:"username"`
	IPAddress   string    `db:"ip_address"`
	Success     bool      `db:"success"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// Principal is the authenticated caller.
type Principal struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	RealName string `json:"real_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// PrincipalOf projects u onto the fields exposed to clients.
func PrincipalOf(u User) Principal {
	return Principal{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RealName: u.RealName,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}
