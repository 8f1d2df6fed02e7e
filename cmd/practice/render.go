package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/practice"
)

const barWidth = 20

func speaker(origin chat.Origin, characterName string) string {
	switch origin {
	case chat.OriginParticipant:
		return "You"
	case chat.OriginCharacter:
		return characterName
	case chat.OriginCoach:
		return "Coach"
	default:
		return string(origin)
	}
}

// scoreBar draws v in [0,100] as a fixed-width bar.
func scoreBar(v float64) string {
	filled := int(math.Round(chat.ClampScore(v) / 100 * barWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// summaryLines lays out a summary for a terminal, one line per element.
func summaryLines(s chat.Summary, characterName string) []string {
	lines := []string{fmt.Sprintf("%s's impression:", characterName)}
	for _, l := range strings.Split(strings.TrimSpace(s.NarrativeText), "\n") {
		lines = append(lines, "  "+l)
	}

	if s.EmotionScores != nil && s.EmotionScores.Len() > 0 {
		width := 0
		for pair := s.EmotionScores.Oldest(); pair != nil; pair = pair.Next() {
			width = max(width, len(pair.Key))
		}
		lines = append(lines, "", "Feelings:")
		for pair := s.EmotionScores.Oldest(); pair != nil; pair = pair.Next() {
			lines = append(lines, fmt.Sprintf("  %-*s %s %3.0f", width, pair.Key, scoreBar(pair.Value), pair.Value))
		}
	}

	if len(s.MemorableMoments) > 0 {
		lines = append(lines, "", "Memorable moments:")
		for _, m := range s.MemorableMoments {
			lines = append(lines, "  • "+m)
		}
	}

	lines = append(lines, "", fmt.Sprintf("Wants to talk again: %.0f%%", s.AffinityScore))
	return lines
}

// describe turns orchestrator errors into a line for the participant.
func describe(err error) string {
	var (
		exchangeErr *practice.ExchangeError
		summaryErr  *practice.SummaryError
	)
	switch {
	case errors.Is(err, practice.ErrEmptyTurn):
		return "Say something first."
	case errors.Is(err, practice.ErrTurnInFlight):
		return "Wait for her reply before saying more."
	case errors.Is(err, practice.ErrSummaryInFlight):
		return "The summary is on its way."
	case errors.Is(err, practice.ErrSessionCompleted):
		return "This conversation is over. Restart to practice again."
	case errors.Is(err, practice.ErrSessionNotStarted):
		return "The session has not started yet."
	case errors.As(err, &exchangeErr):
		return fmt.Sprintf("Turn %d did not go through: %v", exchangeErr.Turn, exchangeErr.Err)
	case errors.As(err, &summaryErr):
		return fmt.Sprintf("Could not get the summary: %v", summaryErr.Err)
	default:
		return err.Error()
	}
}

// settled reports whether nothing more will happen without input: no call
// is in flight and, once the turn limit is reached, the summary has arrived
// or failed for good.
func settled(snap practice.Snapshot, terminalFailure bool) bool {
	switch snap.State {
	case practice.StateSummaryReady:
		return true
	case practice.StateIdle:
		return !snap.Completed || terminalFailure
	default:
		return false
	}
}

// terminal reports whether ev ends the conversation without a summary.
func terminal(ev practice.Event) bool {
	switch ev.Kind {
	case practice.EventSummaryFailed:
		return true
	case practice.EventExchangeFailed:
		return ev.TurnLimit > 0 && ev.TurnCount >= ev.TurnLimit
	default:
		return false
	}
}
