package account

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/speakup/internal/domain/user"
)

type RegisterInput struct {
	Email    string
	Password string
	Profile  user.Profile
}

// Register creates a pending account and mails its confirmation token.
//
// The account is persisted before the email is sent. When dispatch fails the
// pending user stays in place and the caller gets EmailDispatchFailure.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Message, error) {
	email := strings.TrimSpace(in.Email)

	if err := s.checkPassword(in.Password); err != nil {
		s.metrics.AuthEvent("register", "weak_password")
		return Message{}, err
	}

	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return Message{}, err
	}
	if taken {
		s.metrics.AuthEvent("register", "email_taken")
		return Message{}, fail(KindEmailAlreadyRegistered, "email already registered")
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return Message{}, err
	}

	token, err := newVerificationToken()
	if err != nil {
		return Message{}, fault(KindInternal, "generate confirmation token", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.settings.VerificationTTL)

	u := user.User{
		Email:                   email,
		HashedPassword:          hash,
		DisplayName:             user.NormalizeOptional(in.Profile.DisplayName),
		PhoneNumber:             user.NormalizeOptional(in.Profile.PhoneNumber),
		Gender:                  user.NormalizeOptional(in.Profile.Gender),
		Location:                user.NormalizeOptional(in.Profile.Location),
		AvatarPath:              user.NormalizeOptional(in.Profile.AvatarPath),
		IsAdmin:                 false,
		Status:                  user.StatusPending,
		ConfirmationToken:       &token,
		ConfirmationTokenExpiry: &expiresAt,
		CreatedAt:               now,
	}

	created, err := s.store.Create(ctx, u)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return Message{}, fail(KindEmailAlreadyRegistered, "email already registered")
		}
		return Message{}, fault(KindInternal, "create user", err)
	}

	if err := s.mailer.SendConfirmation(ctx, created.Email, token); err != nil {
		s.log.ErrorContext(ctx, "confirmation email dispatch failed", "user_id", created.ID, "err", err)
		s.metrics.AuthEvent("register", "dispatch_failed")
		return Message{}, fault(KindEmailDispatchFailure, "send confirmation email", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", created.ID)
	s.metrics.AuthEvent("register", "ok")

	return Message{Message: "User registered successfully. Please check your email to confirm your account."}, nil
}
