package impression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
)

func scoreValues(t *testing.T, scores *chat.EmotionScores) map[string]float64 {
	t.Helper()
	out := map[string]float64{}
	for pair := scores.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

func TestEmotionScoresBaseline(t *testing.T) {
	scores := EmotionScores([]string{"hello", "I work in an office"})

	var keys []string
	for pair := scores.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{Fun, Comfort, Curiosity, Intimacy}, keys)
	assert.Equal(t, map[string]float64{Fun: 70, Comfort: 75, Curiosity: 65, Intimacy: 60}, scoreValues(t, scores))
}

func TestEmotionScoresBonuses(t *testing.T) {
	msgs := make([]string, 11)
	for i := range msgs {
		msgs[i] = "ok"
	}
	msgs[0] = "that was fun, thank you"
	for i := 1; i < 6; i++ {
		msgs[i] = "so much fun"
	}

	got := scoreValues(t, EmotionScores(msgs))
	assert.Equal(t, 75.0, got[Intimacy])
	assert.Equal(t, 100.0, got[Fun], "fun is capped at 100")
}

func TestMemorableMomentsCapsAtThree(t *testing.T) {
	moments := MemorableMoments([]string{
		strings.Repeat("a", 51),
		"Wow!",
		"thank you",
		"that was fun!",
	})
	assert.Equal(t, []string{MomentTalkative, MomentPassion, MomentKindWords}, moments)

	assert.Empty(t, MemorableMoments([]string{"fine", "ok"}))
}

func TestAffinity(t *testing.T) {
	tests := []struct {
		name        string
		participant []string
		want        float64
	}{
		{
			// avg 67.5 -> +1, short total -> -20
			name:        "terse",
			participant: []string{"yes", "no"},
			want:        31,
		},
		{
			// +1 avg, 5 msgs +5, total 60 runes
			name:        "five plain turns",
			participant: []string{"I live near the station", "I like ramen", "work is busy", "maybe soon", "good night"},
			want:        56,
		},
		{
			name:        "empty",
			participant: nil,
			want:        31,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Evaluate(tt.participant)
			assert.Equal(t, tt.want, report.AffinityScore)
		})
	}
}

func TestAffinityBounds(t *testing.T) {
	scores := chat.NewEmotionScores()
	scores.Set(Fun, 0)
	assert.Equal(t, 10.0, Affinity(scores, nil, nil))

	long := make([]string, 9)
	for i := range long {
		long[i] = strings.Repeat("thank you so much! ", 3)
	}
	report := Evaluate(long)
	assert.Equal(t, 95.0, report.AffinityScore)
	require.Len(t, report.MemorableMoments, 3)
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, BandLow, BandOf(30))
	assert.Equal(t, BandMedium, BandOf(31))
	assert.Equal(t, BandMedium, BandOf(70))
	assert.Equal(t, BandHigh, BandOf(71))
}
