package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/dossier-backend/internal/requestdata"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext starts the request's RequestData with a request id and a
// trace id, echoing both back as response headers. An active span's trace id
// wins over a client supplied one.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, rd := requestdata.Ensure(c.Request.Context())

		rd.RequestID = strings.TrimSpace(c.GetHeader(headerRequestID))
		if rd.RequestID == "" {
			rd.RequestID = uuid.NewString()
		}
		span := trace.SpanFromContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			rd.TraceID = sc.TraceID().String()
			span.SetAttributes(attribute.String("request.id", rd.RequestID))
		} else if rd.TraceID = strings.TrimSpace(c.GetHeader(headerTraceID)); rd.TraceID == "" {
			rd.TraceID = rd.RequestID
		}

		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerTraceID, rd.TraceID)
		c.Writer.Header().Set(headerRequestID, rd.RequestID)
		c.Next()
	}
}
