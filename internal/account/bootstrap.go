package account

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/speakup/internal/domain/user"
)

// EnsureAdmin creates the configured administrator when no account exists for
// email. It reports whether an account was created. An existing account is
// left untouched, whatever its role.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, fail(KindInvalidInput, "admin email and password are required")
	}

	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return false, err
	}
	if taken {
		s.log.InfoContext(ctx, "admin already exists", "email", email)
		return false, nil
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}

	_, err = s.store.Create(ctx, user.User{
		Email:          email,
		HashedPassword: hash,
		IsAdmin:        true,
		Status:         user.StatusActive,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		// lost a race with another instance bootstrapping the same account
		if errors.Is(err, user.ErrEmailTaken) {
			return false, nil
		}
		return false, fault(KindInternal, "create admin", err)
	}

	s.log.InfoContext(ctx, "admin user created", "email", email)
	return true, nil
}
