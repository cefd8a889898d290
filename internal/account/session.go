package account

import (
	"context"
	"time"

	"github.com/geocoder89/speakup/internal/domain/user"
)

// Session is the result of authenticating one call.
type Session struct {
	User user.User
	// RenewedToken is set when the presented token was close to expiry. The
	// presented token stays valid until its own expiry; nothing is revoked.
	RenewedToken     string
	RenewedExpiresAt time.Time
}

// Authenticate resolves the bearer of token to a live account and applies
// sliding renewal. Any failure fails the whole call.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return Session{}, reject(KindInvalidToken, err)
	}

	expiresAt := claims.ExpiresAtTime()
	if expiresAt.IsZero() {
		return Session{}, fail(KindInvalidToken, "token has no expiry")
	}

	remaining := expiresAt.Sub(s.now())
	if remaining <= 0 {
		return Session{}, fail(KindInvalidToken, "token has expired")
	}

	// the account may have been deleted after the token was issued
	u, err := s.findByEmail(ctx, claims.Email())
	if err != nil {
		return Session{}, err
	}

	sess := Session{User: u}

	if remaining < s.settings.RenewalThreshold {
		renewed, renewedExp, err := s.tokens.IssueAccessToken(u.Email)
		if err != nil {
			return Session{}, fault(KindInternal, "renew access token", err)
		}
		sess.RenewedToken = renewed
		sess.RenewedExpiresAt = renewedExp

		s.log.InfoContext(ctx, "access token renewed", "user_id", u.ID, "remaining_s", int(remaining.Seconds()))
		s.metrics.TokenRenewed()
	}

	return sess, nil
}
