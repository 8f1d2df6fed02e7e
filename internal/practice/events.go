package practice

import "github.com/zhouzirui/tennokoe/internal/model/chat"

// EventKind names something a presentation layer may want to react to.
type EventKind string

const (
	EventSessionStarted EventKind = "session_started"
	EventEntryAppended  EventKind = "entry_appended"
	EventTurnRecorded   EventKind = "turn_recorded"
	EventCompleted      EventKind = "completed"
	EventStateChanged   EventKind = "state_changed"
	EventExchangeFailed EventKind = "exchange_failed"
	EventSummaryReady   EventKind = "summary_ready"
	EventSummaryFailed  EventKind = "summary_failed"
)

// Event is published on the orchestrator's event channel. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind       EventKind
	SessionID  string
	Generation uint64

	Entry *chat.Entry
	Index int

	TurnCount int
	TurnLimit int

	From State
	To   State

	Summary *chat.Summary
	Err     error
}

// Snapshot is a consistent read of everything a presentation layer renders.
type Snapshot struct {
	SessionID string
	TurnCount int
	TurnLimit int
	Completed bool
	State     State
	Entries   []chat.Entry
	Summary   *chat.Summary
}
