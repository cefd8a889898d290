package middlewares

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/speakup/internal/account"
	"github.com/geocoder89/speakup/internal/actorctx"
	"github.com/geocoder89/speakup/internal/domain/user"
	"github.com/geocoder89/speakup/internal/http/handlers"
)

const (
	NewTokenHeader          = "X-New-Token"
	NewTokenExpiresAtHeader = "X-New-Token-Expires-At"
)

// Keep this small interface so tests can fake it easily.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (account.Session, error)
	RequireAdmin(u user.User) error
}

type AuthMiddleware struct {
	accounts Authenticator
	log      *slog.Logger
}

func NewAuthMiddleware(accounts Authenticator, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{accounts: accounts, log: log}
}

// RequireAuth resolves the bearer token to an account and stores it on the
// request context. A token close to expiry is renewed and the replacement is
// returned in the X-New-Token header; the presented token stays usable.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			handlers.RespondUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			handlers.RespondUnauthorized(c, "Missing or invalid access token")
			return
		}

		sess, err := m.accounts.Authenticate(c.Request.Context(), raw)
		if err != nil {
			// the account behind a valid token is gone
			if account.IsKind(err, account.KindUserNotFound) {
				handlers.RespondUnauthorized(c, "Could not validate credentials")
				return
			}
			handlers.RespondAccountError(c, m.log, err)
			return
		}

		if sess.RenewedToken != "" {
			c.Header(NewTokenHeader, sess.RenewedToken)
			c.Header(NewTokenExpiresAtHeader, sess.RenewedExpiresAt.UTC().Format(time.RFC3339))
		}

		c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), sess.User))

		c.Next()
	}
}
