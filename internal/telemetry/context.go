package telemetry

import (
	"context"

	"github.com/google/uuid"
)

type turnIDKey struct{}

// WithTurnID returns a child of ctx carrying id. Ask and Summarize events
// emitted under it share the id.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFromContext returns the turn id carried by ctx. An empty id counts
// as missing.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(turnIDKey{}).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// EnsureTurnID returns ctx unchanged if it already carries a turn id, otherwise a
// child context with a fresh time-ordered one.
func EnsureTurnID(ctx context.Context) (context.Context, string) {
	if id, ok := TurnIDFromContext(ctx); ok {
		return ctx, id
	}
	id := "turn-" + newID()
	return WithTurnID(ctx, id), id
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
