package sqlstore

import (
	"context"
	"time"

	"github.com/R3E-Network/classledger/internal/app/domain/user"
)

func (s *Store) CreateSession(ctx context.Context, sess user.Session) (user.Session, error) {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now()
	}
	id, err := s.insert(ctx, `
		INSERT INTO user_sessions (user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, sess.UserID, sess.TokenHash, sess.ExpiresAt.UTC(), sess.CreatedAt)
	if err != nil {
		return user.Session{}, err
	}
	sess.ID = id
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (user.Session, error) {
	var sess user.Session
	err := s.get(ctx, &sess, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM user_sessions WHERE token_hash = ?
	`, tokenHash)
	return sess, err
}

func (s *Store) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	return s.execOne(ctx, `DELETE FROM user_sessions WHERE token_hash = ?`, tokenHash)
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := s.exec(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, at time.Time) (int64, error) {
	result, err := s.exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= ?`, at.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) RecordLoginAttempt(ctx context.Context, a user.LoginAttempt) error {
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO login_attempts (username, ip_address, success, attempted_at)
		VALUES (?, ?, ?, ?)
	`, a.Username, a.IPAddress, a.Success, a.AttemptedAt.UTC())
	return err
}

func (s *Store) CountFailedLoginAttempts(ctx context.Context, username, ip string, since time.Time) (int64, error) {
	return s.count(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = ? AND ip_address = ? AND success = ? AND attempted_at > ?
	`, username, ip, false, since.UTC())
}

func (s *Store) DeleteLoginAttemptsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.exec(ctx, `DELETE FROM login_attempts WHERE attempted_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
