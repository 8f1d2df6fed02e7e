package chat

import (
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// EmotionScores maps an emotion label to a value in [0,100]. Iteration
// follows insertion order, which is also the order the backend reported.
type EmotionScores = orderedmap.OrderedMap[string, float64]

// NewEmotionScores returns an empty score table.
func NewEmotionScores() *EmotionScores {
	return orderedmap.New[string, float64]()
}

// Summary is the impression report handed out when a conversation ends.
type Summary struct {
	NarrativeText    string         `json:"narrativeText"`
	EmotionScores    *EmotionScores `json:"emotionScores"`
	MemorableMoments []string       `json:"memorableMoments"`
	AffinityScore    float64        `json:"affinityScore"`
}

// Normalize returns a copy with every score clamped into [0,100] and no nil
// collections.
func (s Summary) Normalize() Summary {
	out := Summary{
		NarrativeText:    s.NarrativeText,
		EmotionScores:    NewEmotionScores(),
		MemorableMoments: append([]string{}, s.MemorableMoments...),
		AffinityScore:    ClampScore(s.AffinityScore),
	}
	if s.EmotionScores != nil {
		for pair := s.EmotionScores.Oldest(); pair != nil; pair = pair.Next() {
			out.EmotionScores.Set(pair.Key, ClampScore(pair.Value))
		}
	}
	return out
}

// ClampScore pins v into [0,100]; NaN counts as absent and becomes 0.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
