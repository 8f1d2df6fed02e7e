package practice

// State is the orchestrator's position in the turn cycle.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingRemoteTurn    State = "awaiting_remote_turn"
	StateStagingCharacterReply State = "staging_character_reply"
	StateRequestingSummary     State = "requesting_summary"
	StateSummaryReady          State = "summary_ready"
)

// transitions lists the states reachable from each state. SummaryReady only
// leaves through an explicit summary refresh.
var transitions = map[State][]State{
	StateIdle:                  {StateAwaitingRemoteTurn, StateRequestingSummary},
	StateAwaitingRemoteTurn:    {StateStagingCharacterReply, StateIdle},
	StateStagingCharacterReply: {StateIdle, StateRequestingSummary},
	StateRequestingSummary:     {StateSummaryReady, StateIdle},
	StateSummaryReady:          {StateRequestingSummary},
}

// CanTransition reports whether moving from s to to is allowed.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AcceptsInput reports whether a new participant turn may start in s.
func (s State) AcceptsInput() bool {
	return s == StateIdle
}

func (s State) String() string {
	return string(s)
}
