package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/R3E-Network/classledger/internal/app/domain/user"
	"github.com/R3E-Network/classledger/internal/app/storage"
	svcerrors "github.com/R3E-Network/classledger/internal/errors"
)

const weakPasswordMessage = "password must be at least 8 characters and contain a letter and a digit; allowed symbols are @$!%*?&"

// Register creates an account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.RealName = strings.TrimSpace(in.RealName)
	if in.Username == "" || in.Password == "" || in.Role == "" || in.RealName == "" {
		return user.User{}, svcerrors.Validation("username, password, role and real_name are required")
	}
	if !in.Role.Valid() {
		return user.User{}, svcerrors.Validation("role must be admin, teacher or operator")
	}
	if !user.StrongPassword(in.Password) {
		return user.User{}, svcerrors.Validation(weakPasswordMessage)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return user.User{}, svcerrors.Internal("failed to hash password", err)
	}

	var created user.User
	err = s.store.WithTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetUserByUsername(ctx, in.Username); err == nil {
			return svcerrors.Conflict("username already exists")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		var err error
		created, err = repo.CreateUser(ctx, user.User{
			Username:     in.Username,
			PasswordHash: hash,
			Role:         in.Role,
			RealName:     in.RealName,
			Email:        strings.TrimSpace(in.Email),
			Phone:        strings.TrimSpace(in.Phone),
			IsActive:     true,
		})
		if errors.Is(err, storage.ErrDuplicate) {
			return svcerrors.Conflict("username already exists")
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithContext(ctx).
		WithField("new_user_id", created.ID).
		WithField("role", created.Role).
		Info("user registered")
	return created, nil
}

// Profile returns the account of userID.
func (s *Service) Profile(ctx context.Context, userID int64) (user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, userNotFound(err)
	}
	return u, nil
}

// UpdateProfile replaces the editable fields of an account.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (user.User, error) {
	realName := strings.TrimSpace(in.RealName)
	if realName == "" {
		return user.User{}, svcerrors.Validation("real_name is required")
	}
	err := s.store.UpdateUserProfile(ctx, userID, realName, strings.TrimSpace(in.Email), strings.TrimSpace(in.Phone))
	if err != nil {
		return user.User{}, userNotFound(err)
	}
	return s.Profile(ctx, userID)
}

// ChangePassword replaces a password after checking the current one and
// revokes every session of the user.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return svcerrors.Validation("current and new password are required")
	}
	if !user.StrongPassword(next) {
		return svcerrors.Validation(weakPasswordMessage)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return userNotFound(err)
	}
	if !CheckPassword(u.PasswordHash, current) {
		return svcerrors.BadRequest("current password is incorrect")
	}
	hash, err := HashPassword(next)
	if err != nil {
		return svcerrors.Internal("failed to hash password", err)
	}

	err = s.store.WithTx(ctx, func(repo storage.Repository) error {
		if err := repo.UpdateUserPassword(ctx, userID, hash); err != nil {
			return err
		}
		return repo.DeleteUserSessions(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.log.LogSecurityEvent(ctx, "password_changed", map[string]interface{}{"user_id": userID})
	return nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// SetUserActive enables or disables an account. Users cannot change their
// own status; disabling revokes the target's sessions.
func (s *Service) SetUserActive(ctx context.Context, actorID, targetID int64, active bool) (user.User, error) {
	if actorID == targetID {
		return user.User{}, svcerrors.BadRequest("cannot change your own status")
	}
	err := s.store.WithTx(ctx, func(repo storage.Repository) error {
		if err := repo.SetUserActive(ctx, targetID, active); err != nil {
			return userNotFound(err)
		}
		if !active {
			return repo.DeleteUserSessions(ctx, targetID)
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.LogSecurityEvent(ctx, "user_status_changed", map[string]interface{}{
		"target_user_id": targetID,
		"active":         active,
	})
	return s.Profile(ctx, targetID)
}

// EnsureBootstrapAdmin creates an administrator when none exists. It
// reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	admins, err := s.store.CountUsersByRole(ctx, user.RoleAdmin)
	if err != nil {
		return false, err
	}
	if admins > 0 {
		return false, nil
	}
	_, err = s.Register(ctx, RegisterInput{
		Username: username,
		Password: password,
		Role:     user.RoleAdmin,
		RealName: "Administrator",
	})
	if err != nil {
		return false, err
	}
	s.log.WithContext(ctx).WithField("username", username).Warn("bootstrap administrator created; change its password")
	return true, nil
}

func userNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return svcerrors.NotFound("user")
	}
	return err
}
