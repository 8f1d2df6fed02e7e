// Package impression scores a finished conversation from the character's
// point of view.
package impression

import (
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

// Emotion score labels, in report order.
const (
	Fun       = "fun"
	Comfort   = "comfort"
	Curiosity = "curiosity"
	Intimacy  = "intimacy"
)

const (
	maxMoments      = 3
	minAffinity     = 10
	maxAffinity     = 95
	longMessageRune = 50
)

// Moments the character remembers.
const (
	MomentTalkative = "when you told me a lot about yourself"
	MomentPassion   = "when you talked with real passion"
	MomentKindWords = "when you said something kind to me"
)

var (
	positiveWords = []string{"楽しい", "嬉しい", "ありがとう", "素敵", "いいね", "fun", "happy", "thank", "lovely", "nice"}
	kindWords     = []string{"ありがとう", "嬉しい", "楽しい", "thank", "happy", "fun"}
)

// Report is the scored part of a summary; the narrative is written
// separately.
type Report struct {
	EmotionScores    *chat.EmotionScores
	MemorableMoments []string
	AffinityScore    float64
}

// Band buckets an affinity score for choosing the narrative tone.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// BandOf returns the tone band of affinity.
func BandOf(affinity float64) Band {
	switch {
	case affinity <= 30:
		return BandLow
	case affinity <= 70:
		return BandMedium
	default:
		return BandHigh
	}
}

// Evaluate scores the participant's messages of one conversation.
func Evaluate(participant []string) Report {
	scores := EmotionScores(participant)
	moments := MemorableMoments(participant)
	return Report{
		EmotionScores:    scores,
		MemorableMoments: moments,
		AffinityScore:    Affinity(scores, moments, participant),
	}
}

// EmotionScores starts from a friendly baseline and rewards long
// conversations and positive wording.
func EmotionScores(participant []string) *chat.EmotionScores {
	fun, comfort, curiosity, intimacy := 70.0, 75.0, 65.0, 60.0

	if len(participant) > 10 {
		intimacy += 15
	}
	for _, msg := range participant {
		lower := strings.ToLower(msg)
		for _, word := range positiveWords {
			if strings.Contains(lower, word) {
				fun = min(fun+5, 100)
			}
		}
	}

	scores := chat.NewEmotionScores()
	scores.Set(Fun, fun)
	scores.Set(Comfort, comfort)
	scores.Set(Curiosity, curiosity)
	scores.Set(Intimacy, intimacy)
	return scores
}

// MemorableMoments picks at most three moments in conversation order.
func MemorableMoments(participant []string) []string {
	moments := make([]string, 0, maxMoments)
	for _, msg := range participant {
		if utf8.RuneCountInString(msg) > longMessageRune {
			moments = append(moments, MomentTalkative)
		}
		if strings.ContainsAny(msg, "!！") {
			moments = append(moments, MomentPassion)
		}
		lower := strings.ToLower(msg)
		for _, word := range kindWords {
			if strings.Contains(lower, word) {
				moments = append(moments, MomentKindWords)
				break
			}
		}
	}
	if len(moments) > maxMoments {
		moments = moments[:maxMoments]
	}
	return moments
}

// Affinity is how much the character wants to talk again, in [10,95].
func Affinity(scores *chat.EmotionScores, moments []string, participant []string) float64 {
	score := 50

	if scores != nil && scores.Len() > 0 {
		var sum float64
		for pair := scores.Oldest(); pair != nil; pair = pair.Next() {
			sum += pair.Value
		}
		avg := sum / float64(scores.Len())
		score += int((avg - 65) * 0.5)
	}

	score += len(moments) * 8

	if len(participant) >= 5 {
		score += 5
	}
	if len(participant) > 8 {
		score += 10
	}

	total := 0
	for _, msg := range participant {
		total += utf8.RuneCountInString(msg)
	}
	switch {
	case total < 50:
		score -= 20
	case total > 200:
		score += 10
	}

	return float64(max(minAffinity, min(score, maxAffinity)))
}
