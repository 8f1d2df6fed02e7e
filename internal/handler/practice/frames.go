package practice

import (
	"errors"
	"time"

	"github.com/zhouzirui/tennokoe/internal/practice"
	"github.com/zhouzirui/tennokoe/internal/protocol"
)

// Inbound command types.
const (
	CommandSubmit  = "submit"
	CommandEnd     = "end"
	CommandRestart = "restart"
)

// FrameRejected answers a command the orchestrator refused.
const FrameRejected = "rejected"

type command struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type entryFrame struct {
	Index int `json:"index"`
	protocol.Message
}

// Frame is one outbound websocket message. Type is an event kind or
// FrameRejected.
type Frame struct {
	Type       string                       `json:"type"`
	SessionID  string                       `json:"sessionId,omitempty"`
	Generation uint64                       `json:"generation,omitempty"`
	Entry      *entryFrame                  `json:"entry,omitempty"`
	TurnCount  int                          `json:"turnCount,omitempty"`
	TurnLimit  int                          `json:"turnLimit,omitempty"`
	From       string                       `json:"from,omitempty"`
	To         string                       `json:"to,omitempty"`
	Summary    *protocol.ImpressionResponse `json:"summary,omitempty"`
	Code       string                       `json:"code,omitempty"`
	Error      string                       `json:"error,omitempty"`
	Timestamp  int64                        `json:"timestamp"`
}

func frameFromEvent(ev practice.Event, now time.Time) Frame {
	f := Frame{
		Type:       string(ev.Kind),
		SessionID:  ev.SessionID,
		Generation: ev.Generation,
		TurnCount:  ev.TurnCount,
		TurnLimit:  ev.TurnLimit,
		From:       string(ev.From),
		To:         string(ev.To),
		Timestamp:  now.Unix(),
	}
	if ev.Entry != nil {
		if role, err := protocol.RoleOf(ev.Entry.Origin); err == nil {
			f.Entry = &entryFrame{Index: ev.Index, Message: protocol.Message{
				Role:             role,
				Content:          ev.Entry.Body,
				Timestamp:        ev.Entry.CreatedAt,
				DetectedPatterns: ev.Entry.Tags,
			}}
		}
	}
	if ev.Summary != nil {
		resp := protocol.FromSummary(*ev.Summary)
		f.Summary = &resp
	}
	if ev.Err != nil {
		f.Error = ev.Err.Error()
	}
	return f
}

func rejection(err error, now time.Time) Frame {
	return Frame{Type: FrameRejected, Code: rejectionCode(err), Error: err.Error(), Timestamp: now.Unix()}
}

func rejectionCode(err error) string {
	switch {
	case errors.Is(err, practice.ErrEmptyTurn):
		return "empty_turn"
	case errors.Is(err, practice.ErrSessionNotStarted):
		return "not_started"
	case errors.Is(err, practice.ErrSessionCompleted):
		return "completed"
	case errors.Is(err, practice.ErrTurnInFlight):
		return "turn_in_flight"
	case errors.Is(err, practice.ErrSummaryInFlight):
		return "summary_in_flight"
	case errors.Is(err, practice.ErrClosed):
		return "closed"
	case errors.Is(err, errUnknownCommand):
		return "unknown_command"
	default:
		var initErr *practice.SessionInitError
		if errors.As(err, &initErr) {
			return "session_init_failed"
		}
		return "internal"
	}
}
