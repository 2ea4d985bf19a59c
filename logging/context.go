package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	sessionIDKey contextKey = "session_id"
)

// NewRequestID returns a random UUID for correlating log lines of one request.
func NewRequestID() string {
	return uuid.NewString()
}

// ContextWithRequestID stores a request id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithSessionID stores the tracking session id in ctx.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the tracking session id or "".
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger decorated with the request and session ids found in ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := Logger().With()
	if ctx != nil {
		if id := RequestIDFromContext(ctx); id != "" {
			lc = lc.Str("request_id", id)
		}
		if id := SessionIDFromContext(ctx); id != "" {
			lc = lc.Str("session_id", id)
		}
	}
	l := lc.Logger()
	return &l
}
