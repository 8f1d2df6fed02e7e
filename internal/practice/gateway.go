package practice

import (
	"context"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

// SessionCreator opens sessions on the conversation backend.
type SessionCreator interface {
	CreateSession(ctx context.Context) (chat.SessionHandle, error)
}

// Gateway is the remote conversation backend consumed by the orchestrator.
// Implementations must tolerate repeated calls; the orchestrator itself
// never retries.
type Gateway interface {
	SessionCreator

	// ExchangeTurn sends one participant turn together with the log as it
	// stood before that turn.
	ExchangeTurn(ctx context.Context, sessionID, text string, prior []chat.Entry) (chat.TurnResult, error)

	// EndSession closes the conversation and returns the impression report.
	EndSession(ctx context.Context, sessionID string) (chat.Summary, error)
}
