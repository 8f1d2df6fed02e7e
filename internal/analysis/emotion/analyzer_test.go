package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Label
	}{
		{name: "empty", text: "   ", want: Neutral},
		{name: "no keywords", text: "I work in logistics", want: Neutral},
		{name: "joy", text: "That sounds like so much fun, thanks", want: Joy},
		{name: "japanese joy", text: "今日は楽しいです", want: Joy},
		{name: "anxiety", text: "Honestly I'm a bit nervous and worried", want: Anxiety},
		{name: "sadness", text: "I've been lonely since I moved", want: Sadness},
		{name: "anticipation beats joy on exclamations", text: "I can't wait!!!", want: Anticipation},
		{name: "confusion from questions", text: "what do you mean?? really??", want: Confusion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.text)
			assert.Equal(t, tt.want, got.Emotion)
			if tt.want == Neutral {
				assert.Zero(t, got.Score)
			} else {
				assert.Positive(t, got.Score)
			}
		})
	}
}

func TestParse(t *testing.T) {
	label, ok := Parse(` "Relief" `)
	assert.True(t, ok)
	assert.Equal(t, Relief, label)

	_, ok = Parse("magnetic")
	assert.False(t, ok)
}

func TestNamesCoversEveryLabel(t *testing.T) {
	names := Names()
	assert.Len(t, names, len(Labels))
	assert.IsIncreasing(t, names)
}
