package chat

import "time"

// SessionHandle is what the conversation backend hands out when a practice
// session opens.
type SessionHandle struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// TurnResult is the backend's answer to a single participant turn.
type TurnResult struct {
	CharacterReply string   `json:"characterReply"`
	CoachFeedback  string   `json:"coachFeedback"`
	DetectedTags   []string `json:"detectedTags,omitempty"`
}
