package practice

import (
	"errors"
	"fmt"
)

// Rejections returned by the orchestrator's entry points. Nothing is mutated
// when one of these is returned.
var (
	ErrEmptyTurn         = errors.New("turn text is empty")
	ErrSessionNotStarted = errors.New("session not started")
	ErrSessionCompleted  = errors.New("session already completed")
	ErrTurnInFlight      = errors.New("a turn is already awaiting the gateway")
	ErrSummaryInFlight   = errors.New("a summary request is already in flight")
	ErrSessionDiscarded  = errors.New("session discarded")
	ErrClosed            = errors.New("orchestrator closed")

	ErrInvalidEntry     = errors.New("invalid log entry")
	ErrMissingSessionID = errors.New("gateway returned no session id")
)

// SessionInitError means no session could be opened. No turns can be
// submitted until Start succeeds.
type SessionInitError struct {
	Err error
}

func (e *SessionInitError) Error() string {
	return fmt.Sprintf("session init failed: %v", e.Err)
}

func (e *SessionInitError) Unwrap() error {
	return e.Err
}

// ExchangeError means the gateway call for one turn failed. The turn still
// counts and is not retried.
type ExchangeError struct {
	SessionID string
	Turn      int
	Err       error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange for turn %d of session %s failed: %v", e.Turn, e.SessionID, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// SummaryError means the closing summary could not be retrieved. The
// conversation stays completed without a summary.
type SummaryError struct {
	SessionID string
	Automatic bool
	Err       error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("summary for session %s failed: %v", e.SessionID, e.Err)
}

func (e *SummaryError) Unwrap() error {
	return e.Err
}
