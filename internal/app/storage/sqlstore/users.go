package sqlstore

import (
	"context"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/user"
)

const userColumns = `id, username, password_hash, role, real_name, email, phone, is_active, last_login, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	ts := now()
	u.CreatedAt = ts
	u.UpdatedAt = ts
	id, err := s.insert(ctx, `
		INSERT INTO users (username, password_hash, role, real_name, email, phone, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, u.Username, u.PasswordHash, u.Role, u.RealName, u.Email, u.Phone, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, duplicate(err)
	}
	u.ID = id
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return u, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User
	err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	users := []user.User{}
	err := s.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`)
	return users, err
}

func (s *Store) UpdateUserProfile(ctx context.Context, id int64, realName, email, phone string) error {
	return s.execOne(ctx, `
		UPDATE users SET real_name = ?, email = ?, phone = ?, updated_at = ? WHERE id = ?
	`, realName, email, phone, now(), id)
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.execOne(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, passwordHash, now(), id)
}

func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	return s.execOne(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id)
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return s.execOne(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
}

func (s *Store) CountUsersByRole(ctx context.Context, role user.Role) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, role)
}
