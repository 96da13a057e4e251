package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dossier-backend/internal/observability"
)

// Metrics records request counts and latency by route template. Event
// streams stay open for the life of a session, so they are counted but not
// timed.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			m.ObserveAPI(c.Request.Method, route, status, -1)
			return
		}
		m.ObserveAPI(c.Request.Method, route, status, time.Since(start))
	}
}
