package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/geocoder89/speakup/internal/actorctx"
	"github.com/geocoder89/speakup/internal/http/handlers"
)

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := actorctx.UserFrom(c.Request.Context())
		if !ok {
			handlers.RespondUnauthorized(c, "Missing identity context")
			return
		}

		if err := m.accounts.RequireAdmin(u); err != nil {
			handlers.RespondAccountError(c, m.log, err)
			return
		}

		c.Next()
	}
}
