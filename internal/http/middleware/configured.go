package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
)

// RequireConfigured answers 503 configuration_missing for every request while
// missing is non-nil.
func RequireConfigured(missing error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if missing != nil {
			response.AbortError(c, http.StatusServiceUnavailable, "configuration_missing", missing)
			return
		}
		c.Next()
	}
}
