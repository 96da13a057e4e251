package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/http/response"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/requestdata"
	"github.com/yungbote/dossier-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		id, err := am.authService.ResolveIdentity(c.Request.Context(), tokenString)
		if err != nil {
			if _, ok := services.AuthReasonOf(err); !ok {
				am.log.Warn("Resolve identity failed", "error", err)
				response.AbortError(c, http.StatusServiceUnavailable, "auth_unavailable", err)
				return
			}
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		ctx, rd := requestdata.Ensure(c.Request.Context())
		rd.TokenString = tokenString
		rd.UserID = id.UserID
		rd.SessionID = id.SessionID
		rd.Email = id.Email
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// extractTokenFromAll prefers the Authorization header. The query form exists
// for EventSource, which cannot set headers.
func extractTokenFromAll(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("access_token"))
}
