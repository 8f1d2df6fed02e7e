package coach

import (
	"strings"
	"unicode/utf8"
)

// Pattern tags produced by the rule checks.
const (
	PatternInappropriate = "inappropriate_topic"
	PatternShortAnswer   = "short_answer"
	PatternRude          = "rude_wording"
	PatternCommanding    = "commanding_tone"
)

// Rule is a cheap check run before any model call. The first rule that
// matches decides the feedback.
type Rule struct {
	Pattern  string
	Advisory string
	Match    func(text string) bool
}

var (
	inappropriateWords = []string{"おしっこ", "うんち", "うんこ", "セックス", "エロ", "ちんちん", "おっぱい", "sex", "boobs", "poop", "nudes"}
	shortResponses     = []string{"はい", "いいえ", "うん", "そう", "はーい", "おー", "へー", "ふーん", "どうも", "yes", "no", "ok", "okay", "sure", "yeah", "nope", "cool", "nice", "i see"}
	rudePhrases        = []string{"似合ってない", "ダメ", "つまらん", "面白くない", "やめて", "うざい", "きもい", "boring", "ugly", "annoying", "gross", "creepy", "doesn't suit you"}
	commandEndings     = []string{"やめろ", "しろ", "するな", "やめときな", "だまれ", "shut up", "be quiet", "do it", "hurry up"}
)

// DefaultRules mirrors the order in which a human coach would object:
// off-limits topics first, then answers that end the conversation, then
// wording and tone.
func DefaultRules() []Rule {
	return []Rule{
		{
			Pattern:  PatternInappropriate,
			Advisory: "That topic is a bit much... Mio would be put on the spot. Try something more everyday that you can both enjoy talking about.",
			Match:    func(text string) bool { return containsAny(strings.ToLower(text), inappropriateWords) },
		},
		{
			Pattern:  PatternShortAnswer,
			Advisory: "With an answer that short the conversation just stops, even though Mio wants to know more. Add a little detail, like \"it's because...\" or \"the other day I...\", and she'll be happy.",
			Match:    isShortAnswer,
		},
		{
			Pattern:  PatternRude,
			Advisory: "Put like that, Mio might get hurt... Think about how she feels and soften it, for example \"it's not really my taste\". Then she can relax and keep talking.",
			Match:    func(text string) bool { return containsAny(strings.ToLower(text), rudePhrases) },
		},
		{
			Pattern:  PatternCommanding,
			Advisory: "An order like that will scare Mio... Ask instead, like \"could you...?\" or \"I'd be glad if you...\", and she'll happily go along with it.",
			Match:    hasCommandEnding,
		},
	}
}

func isShortAnswer(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= 3 {
		return true
	}
	normalized := strings.ToLower(strings.TrimRight(trimmed, ".!?。！？ "))
	for _, short := range shortResponses {
		if normalized == short {
			return true
		}
	}
	return false
}

func hasCommandEnding(text string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(text), ".!。！ "))
	for _, ending := range commandEndings {
		if strings.HasSuffix(normalized, ending) {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
