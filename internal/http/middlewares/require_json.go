package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/speakup/internal/http/handlers"
)

// RequireContentType rejects bodies of write requests whose media type is not
// one of allowed, e.g. "application/json" or "multipart/form-data".
func RequireContentType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := strings.ToLower(c.ContentType())
			for _, want := range allowed {
				if ct == want {
					c.Next()
					return
				}
			}
			handlers.RespondError(c, http.StatusUnsupportedMediaType, "unsupported_media_type",
				"Content-Type must be one of "+strings.Join(allowed, ", "), nil)
			return
		}
		c.Next()
	}
}
