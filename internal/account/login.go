package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/speakup/internal/domain/user"
)

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login authenticates by email and password and issues a full-lifetime access token.
//
// Unknown email and wrong password are reported the same way. The password is
// verified against a dummy hash when the email is unknown so both paths cost the same.
func (s *Service) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	u, lookupErr := s.store.FindByEmail(ctx, strings.TrimSpace(email))

	var found bool
	targetHash := s.dummyHash

	switch {
	case lookupErr == nil:
		found = true
		targetHash = u.HashedPassword
	case errors.Is(lookupErr, user.ErrNotFound):
	default:
		return TokenResponse{}, fault(KindInternal, "find user by email", lookupErr)
	}

	valid := s.hasher.Verify(password, targetHash)

	if !found || !valid {
		if !found {
			s.log.DebugContext(ctx, "login for unknown email")
		}
		s.metrics.AuthEvent("login", "invalid_credentials")
		return TokenResponse{}, fail(KindInvalidCredentials, "invalid credentials")
	}

	if !u.IsActive() {
		s.metrics.AuthEvent("login", "not_activated")
		return TokenResponse{}, fail(KindAccountNotActivated, "account is not activated")
	}

	token, expiresAt, err := s.tokens.IssueAccessToken(u.Email)
	if err != nil {
		return TokenResponse{}, fault(KindInternal, "issue access token", err)
	}

	s.metrics.AuthEvent("login", "ok")

	return TokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt}, nil
}
