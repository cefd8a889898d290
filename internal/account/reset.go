package account

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/speakup/internal/domain/user"
)

// ForgotPassword stores a fresh reset token on the account and mails it.
// Issuing a new token overwrites any previous one.
func (s *Service) ForgotPassword(ctx context.Context, email string) (Message, error) {
	u, err := s.findByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.metrics.AuthEvent("forgot_password", string(KindOf(err)))
		return Message{}, err
	}

	token, err := newVerificationToken()
	if err != nil {
		return Message{}, fault(KindInternal, "generate reset token", err)
	}
	expiresAt := s.now().UTC().Add(s.settings.VerificationTTL)

	if err := s.store.UpdateByEmail(ctx, u.Email, user.Patch{ResetToken: user.SetToken(token, expiresAt)}); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Message{}, fail(KindUserNotFound, "user not found")
		}
		return Message{}, fault(KindInternal, "store reset token", err)
	}

	if err := s.mailer.SendReset(ctx, u.Email, token); err != nil {
		s.log.ErrorContext(ctx, "reset email dispatch failed", "user_id", u.ID, "err", err)
		s.metrics.AuthEvent("forgot_password", "dispatch_failed")
		return Message{}, fault(KindEmailDispatchFailure, "send reset email", err)
	}

	s.metrics.AuthEvent("forgot_password", "ok")

	return Message{Message: "Password reset email sent. Please check your inbox."}, nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) (Message, error) {
	u, err := s.findByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Message{}, err
	}

	if err := checkVerificationToken(u.ResetToken, u.ResetTokenExpiry, token, s.now()); err != nil {
		s.metrics.AuthEvent("reset_password", string(KindOf(err)))
		return Message{}, err
	}

	if err := s.checkPassword(newPassword); err != nil {
		return Message{}, err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return Message{}, err
	}

	patch := user.Patch{
		HashedPassword: &hash,
		ResetToken:     user.ClearToken(),
		IfResetToken:   &token,
	}

	if err := s.store.UpdateByEmail(ctx, u.Email, patch); err != nil {
		switch {
		case errors.Is(err, user.ErrConflict):
			return Message{}, fail(KindTokenMismatch, "token does not match")
		case errors.Is(err, user.ErrNotFound):
			return Message{}, fail(KindUserNotFound, "user not found")
		}
		return Message{}, fault(KindInternal, "reset password", err)
	}

	s.log.InfoContext(ctx, "password reset", "user_id", u.ID)
	s.metrics.AuthEvent("reset_password", "ok")

	return Message{Message: "Password has been reset successfully."}, nil
}
