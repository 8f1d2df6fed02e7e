package chat

import "time"

// Origin identifies who produced an entry in a conversation log.
type Origin string

const (
	OriginParticipant Origin = "participant"
	OriginCharacter   Origin = "character"
	OriginCoach       Origin = "coach"
)

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	switch o {
	case OriginParticipant, OriginCharacter, OriginCoach:
		return true
	default:
		return false
	}
}

// Entry is one item of a conversation log. Entries are never mutated after
// they have been appended.
type Entry struct {
	Origin    Origin    `json:"origin"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Tags      []string  `json:"tags,omitempty"`
}

// ParticipantEntry builds the entry for a participant's own turn.
func ParticipantEntry(body string) Entry {
	return Entry{Origin: OriginParticipant, Body: body}
}

// CharacterEntry builds the entry for the simulated character's reply.
func CharacterEntry(body string) Entry {
	return Entry{Origin: OriginCharacter, Body: body}
}

// CoachEntry builds a coaching entry carrying the detected behaviour patterns.
func CoachEntry(body string, tags []string) Entry {
	var copied []string
	if len(tags) > 0 {
		copied = append([]string(nil), tags...)
	}
	return Entry{Origin: OriginCoach, Body: body, Tags: copied}
}

// Clone returns a copy that shares no slices with e.
func (e Entry) Clone() Entry {
	if e.Tags != nil {
		e.Tags = append([]string(nil), e.Tags...)
	}
	return e
}
