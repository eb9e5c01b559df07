package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// NewSessionID returns a fresh replay-session correlation id.
func NewSessionID() string {
	return uuid.New().String()
}

// ContextWithSessionID attaches a replay session id to ctx so every log
// line emitted while processing that session can be grepped by it.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the session id stored in ctx, if any.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger with session_id attached when present.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := SessionIDFromContext(ctx); id != "" {
		l = l.With().Str("session_id", id).Logger()
	}
	return &l
}

// WithComponent returns a child logger tagged with a component field,
// e.g. logging.WithComponent("replay").
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
