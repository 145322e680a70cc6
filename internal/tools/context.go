package tools

import (
	"context"

	"github.com/seralba/vitala-health-agent/internal/session"
)

type contextKey string

const turnKey contextKey = "session_turn"

// WithTurn attaches the active session turn to the context so that
// tools with session-scoped side effects (the symptom log) stage their
// writes on the turn rather than mutating shared state directly.
func WithTurn(ctx context.Context, t *session.Turn) context.Context {
	return context.WithValue(ctx, turnKey, t)
}

// TurnFromContext extracts the active turn, or nil when the tool is
// executed outside a conversation turn.
func TurnFromContext(ctx context.Context) *session.Turn {
	if t, ok := ctx.Value(turnKey).(*session.Turn); ok {
		return t
	}
	return nil
}
