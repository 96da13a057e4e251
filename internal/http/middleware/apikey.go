package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
)

const headerAPIKey = "apikey"

// RequireAPIKey checks the public service key clients send with every API
// call. An empty key disables the check.
func RequireAPIKey(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := strings.TrimSpace(c.GetHeader(headerAPIKey))
		if got == "" {
			got = strings.TrimSpace(c.Query(headerAPIKey))
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.AbortError(c, http.StatusUnauthorized, "invalid_api_key", errors.New("missing or invalid apikey"))
			return
		}
		c.Next()
	}
}
