package account

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/speakup/internal/domain/user"
)

// ConfirmEmail activates a pending account. The token is cleared by the same
// guarded write that flips the status, so a replayed token cannot succeed twice.
func (s *Service) ConfirmEmail(ctx context.Context, email, token string) (Message, error) {
	u, err := s.findByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Message{}, err
	}

	if u.IsActive() {
		return Message{}, fail(KindAlreadyActivated, "account is already activated")
	}

	if err := checkVerificationToken(u.ConfirmationToken, u.ConfirmationTokenExpiry, token, s.now()); err != nil {
		s.metrics.AuthEvent("confirm", string(KindOf(err)))
		return Message{}, err
	}

	active := user.StatusActive
	patch := user.Patch{
		Status:              &active,
		ConfirmationToken:   user.ClearToken(),
		IfConfirmationToken: &token,
	}

	if err := s.store.UpdateByEmail(ctx, u.Email, patch); err != nil {
		switch {
		case errors.Is(err, user.ErrConflict):
			return Message{}, fail(KindTokenMismatch, "token does not match")
		case errors.Is(err, user.ErrNotFound):
			return Message{}, fail(KindUserNotFound, "user not found")
		}
		return Message{}, fault(KindInternal, "activate user", err)
	}

	s.log.InfoContext(ctx, "account activated", "user_id", u.ID)
	s.metrics.AuthEvent("confirm", "ok")

	return Message{Message: "Email confirmed successfully. You can now log in."}, nil
}
