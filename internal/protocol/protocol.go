// Package protocol holds the JSON bodies exchanged between the practice
// client and the conversation backend.
package protocol

import (
	"fmt"
	"time"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

// HTTP routes served by the backend.
const (
	PathCreateSession = "/api/session/create"
	PathMessage       = "/api/conversation/message"
	PathEnd           = "/api/conversation/end"
	PathActivePersona = "/api/personas/active"
)

// Wire roles of a history message.
const (
	RoleUser  = "user"
	RoleBot   = "bot"
	RoleVoice = "voice"
)

// CreateSessionResponse answers PathCreateSession.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	CreatedAt Time   `json:"created_at"`
}

// Message is one history item as sent over the wire.
type Message struct {
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	DetectedPatterns []string  `json:"detected_patterns,omitempty"`
}

// ConversationRequest is the body of PathMessage.
type ConversationRequest struct {
	SessionID           string    `json:"session_id"`
	UserMessage         string    `json:"user_message"`
	ConversationHistory []Message `json:"conversation_history"`
}

// ConversationResponse answers PathMessage.
type ConversationResponse struct {
	BotResponse      string   `json:"bot_response"`
	VoiceFeedback    string   `json:"voice_feedback"`
	DetectedPatterns []string `json:"detected_patterns"`
}

// EndRequest is the body of PathEnd.
type EndRequest struct {
	SessionID string `json:"session_id"`
}

// ImpressionResponse answers PathEnd. A missing want_to_talk_again decodes
// as zero.
type ImpressionResponse struct {
	ImpressionText   string              `json:"impression_text"`
	EmotionScores    *chat.EmotionScores `json:"emotion_scores"`
	MemorableMoments []string            `json:"memorable_moments"`
	WantToTalkAgain  float64             `json:"want_to_talk_again"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoleOf maps a log origin to its wire role.
func RoleOf(origin chat.Origin) (string, error) {
	switch origin {
	case chat.OriginParticipant:
		return RoleUser, nil
	case chat.OriginCharacter:
		return RoleBot, nil
	case chat.OriginCoach:
		return RoleVoice, nil
	default:
		return "", fmt.Errorf("unknown origin %q", origin)
	}
}

// OriginOf maps a wire role back to a log origin.
func OriginOf(role string) (chat.Origin, error) {
	switch role {
	case RoleUser:
		return chat.OriginParticipant, nil
	case RoleBot:
		return chat.OriginCharacter, nil
	case RoleVoice:
		return chat.OriginCoach, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

// FromEntries converts a log to wire history.
func FromEntries(entries []chat.Entry) ([]Message, error) {
	out := make([]Message, 0, len(entries))
	for _, entry := range entries {
		role, err := RoleOf(entry.Origin)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{
			Role:             role,
			Content:          entry.Body,
			Timestamp:        entry.CreatedAt,
			DetectedPatterns: append([]string(nil), entry.Tags...),
		})
	}
	return out, nil
}

// ToEntries converts wire history to log entries.
func ToEntries(messages []Message) ([]chat.Entry, error) {
	out := make([]chat.Entry, 0, len(messages))
	for i, msg := range messages {
		origin, err := OriginOf(msg.Role)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		entry := chat.Entry{Origin: origin, Body: msg.Content, CreatedAt: msg.Timestamp}
		if origin == chat.OriginCoach && len(msg.DetectedPatterns) > 0 {
			entry.Tags = append([]string(nil), msg.DetectedPatterns...)
		}
		out = append(out, entry)
	}
	return out, nil
}

// FromHandle builds the create-session answer.
func FromHandle(handle chat.SessionHandle) CreateSessionResponse {
	return CreateSessionResponse{SessionID: handle.ID, CreatedAt: Time{Time: handle.CreatedAt}}
}

// Handle converts the create-session answer.
func (r CreateSessionResponse) Handle() chat.SessionHandle {
	return chat.SessionHandle{ID: r.SessionID, CreatedAt: r.CreatedAt.Time}
}

// FromTurnResult builds the message answer.
func FromTurnResult(result chat.TurnResult) ConversationResponse {
	patterns := result.DetectedTags
	if patterns == nil {
		patterns = []string{}
	}
	return ConversationResponse{
		BotResponse:      result.CharacterReply,
		VoiceFeedback:    result.CoachFeedback,
		DetectedPatterns: patterns,
	}
}

// TurnResult converts the message answer.
func (r ConversationResponse) TurnResult() chat.TurnResult {
	return chat.TurnResult{
		CharacterReply: r.BotResponse,
		CoachFeedback:  r.VoiceFeedback,
		DetectedTags:   r.DetectedPatterns,
	}
}

// FromSummary builds the end answer.
func FromSummary(summary chat.Summary) ImpressionResponse {
	normalized := summary.Normalize()
	return ImpressionResponse{
		ImpressionText:   normalized.NarrativeText,
		EmotionScores:    normalized.EmotionScores,
		MemorableMoments: normalized.MemorableMoments,
		WantToTalkAgain:  normalized.AffinityScore,
	}
}

// Summary converts the end answer; scores are clamped into [0,100].
func (r ImpressionResponse) Summary() chat.Summary {
	return chat.Summary{
		NarrativeText:    r.ImpressionText,
		EmotionScores:    r.EmotionScores,
		MemorableMoments: r.MemorableMoments,
		AffinityScore:    r.WantToTalkAgain,
	}.Normalize()
}
