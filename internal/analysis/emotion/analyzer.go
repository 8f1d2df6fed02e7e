package emotion

import (
	"sort"
	"strings"
)

// Label is the participant emotion reported alongside coach feedback.
type Label string

const (
	Neutral      Label = "neutral"
	Joy          Label = "joy"
	Relief       Label = "relief"
	Anticipation Label = "anticipation"
	Anxiety      Label = "anxiety"
	Confusion    Label = "confusion"
	Sadness      Label = "sadness"
	Anger        Label = "anger"
	Impatience   Label = "impatience"
	Dejection    Label = "dejection"
)

// Labels lists every label in a stable order.
var Labels = []Label{Joy, Relief, Anticipation, Anxiety, Confusion, Sadness, Anger, Impatience, Dejection, Neutral}

// Decision is the result of scoring one utterance.
type Decision struct {
	Emotion Label
	Score   int
}

var keywordBuckets = map[Label][]string{
	Joy: {
		"楽しい", "嬉しい", "うれしい", "最高", "やった", "笑", "ありがとう", "素敵",
		"happy", "glad", "fun", "great", "awesome", "love", "thanks", "thank you", "haha", "lol",
	},
	Relief: {
		"安心", "ほっと", "よかった", "助かった", "落ち着",
		"relieved", "relief", "phew", "glad it", "calm now",
	},
	Anticipation: {
		"楽しみ", "期待", "わくわく", "ワクワク", "待ちきれない", "行ってみたい",
		"can't wait", "looking forward", "excited", "hope to", "next time",
	},
	Anxiety: {
		"不安", "緊張", "心配", "怖い", "ドキドキ", "大丈夫かな",
		"nervous", "anxious", "worried", "scared", "afraid", "tense",
	},
	Confusion: {
		"わからない", "分からない", "どういう", "困った", "迷う", "なんで",
		"confused", "not sure", "don't know", "what do you mean", "huh",
	},
	Sadness: {
		"悲しい", "寂しい", "さみしい", "泣", "つらい", "辛い",
		"sad", "lonely", "cry", "miss", "hurt", "unhappy",
	},
	Anger: {
		"怒", "ムカつく", "むかつく", "腹立", "ふざけ", "イライラ",
		"angry", "mad", "furious", "annoyed", "pissed",
	},
	Impatience: {
		"早く", "急いで", "まだ", "遅い", "時間がない",
		"hurry", "quickly", "come on", "too slow", "no time",
	},
	Dejection: {
		"落ち込", "へこ", "凹", "だめだ", "もういい", "疲れた",
		"depressed", "down", "give up", "hopeless", "tired of", "exhausted",
	},
}

// Detect scores text against the keyword buckets and returns the dominant
// label. Text with no hits is Neutral with a zero score.
func Detect(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: Neutral}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, strings.ToLower(word)) {
				scores[label] += 3
			}
		}
	}

	exclamations := strings.Count(text, "!") + strings.Count(text, "！")
	if exclamations > 0 {
		scores[Joy] += 2
		scores[Anticipation] += exclamations
	}
	questions := strings.Count(text, "?") + strings.Count(text, "？")
	if questions > 1 {
		scores[Confusion] += questions
	}

	best := Decision{Emotion: Neutral}
	for _, label := range Labels {
		if s := scores[label]; s > best.Score {
			best = Decision{Emotion: label, Score: s}
		}
	}
	return best
}

// Parse maps a free-form label, as a classifier might return it, onto a
// known Label.
func Parse(raw string) (Label, bool) {
	trimmed := strings.Trim(strings.TrimSpace(raw), `"'`)
	normalized := Label(strings.ToLower(strings.TrimSpace(trimmed)))
	for _, label := range Labels {
		if normalized == label {
			return label, true
		}
	}
	return "", false
}

// Names returns the label names sorted alphabetically.
func Names() []string {
	names := make([]string, 0, len(Labels))
	for _, label := range Labels {
		names = append(names, string(label))
	}
	sort.Strings(names)
	return names
}
