package account

import (
	"context"
	"errors"

	"github.com/geocoder89/speakup/internal/domain/user"
)

// ChangePassword replaces the password of an authenticated user after
// checking the old one.
func (s *Service) ChangePassword(ctx context.Context, current user.User, oldPassword, newPassword string) (Message, error) {
	if !s.hasher.Verify(oldPassword, current.HashedPassword) {
		s.metrics.AuthEvent("change_password", "invalid_credentials")
		return Message{}, fail(KindInvalidCredentials, "old password is incorrect")
	}

	if err := s.checkPassword(newPassword); err != nil {
		return Message{}, err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return Message{}, err
	}

	if err := s.store.UpdateByID(ctx, current.ID, user.Patch{HashedPassword: &hash}); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Message{}, fail(KindUserNotFound, "user not found")
		}
		return Message{}, fault(KindInternal, "change password", err)
	}

	s.log.InfoContext(ctx, "password changed", "user_id", current.ID)
	s.metrics.AuthEvent("change_password", "ok")

	return Message{Message: "Password updated successfully."}, nil
}
