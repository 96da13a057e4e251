package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData is filled in as a request moves through the middleware chain:
// ids first, then the caller once the access token resolves.
type RequestData struct {
	RequestID string
	TraceID   string

	TokenString string
	UserID      uuid.UUID
	SessionID   uuid.UUID
	Email       string
}

// Authenticated reports whether the auth middleware resolved a session.
func (rd *RequestData) Authenticated() bool {
	return rd != nil && rd.SessionID != uuid.Nil
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// Ensure returns the request's data, attaching an empty one when absent.
func Ensure(ctx context.Context) (context.Context, *RequestData) {
	if rd := GetRequestData(ctx); rd != nil {
		return ctx, rd
	}
	rd := &RequestData{}
	return WithRequestData(ctx, rd), rd
}
