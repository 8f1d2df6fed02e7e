package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/analysis/impression"
	"github.com/zhouzirui/tennokoe/internal/config"
	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
)

// FallbackReply is used when the model is unavailable or fails.
const FallbackReply = "Umm, sorry, I got lost in thought for a second~ 💦"

var errEmptyCompletion = errors.New("model returned an empty completion")

var fallbackImpressions = map[impression.Band][]string{
	impression.BandLow: {
		"Honestly, today was a bit of a struggle... 💦 The conversation kept stalling and I had no idea what to talk about. I'd love it if you spoke up a little more.",
		"Hmm, it didn't really take off today. Answers were one or two words and it felt like I was the only one talking. Try a bit harder next time!",
		"It never quite got going... were you nervous? Relax a little and I'm sure it'll be much more fun.",
	},
	impression.BandMedium: {
		"Today was okay~ You listened well, but I'd have liked you to ask about me a bit more. You were kind though, so I'd talk again.",
		"Not bad! If the back-and-forth gets a little smoother it'll be way more fun. I could tell you're sincere.",
		"Pretty average, I think. I know you were nervous, but once you talk more naturally it'll be a great time~",
	},
	impression.BandHigh: {
		"Today was so much fun~! 💕 You were gentle and easy to talk to, you really listened, and the time just flew!",
		"Such a lovely time ✨ The pace was great and you kept checking on how I felt. I definitely want to talk again!",
		"The best! I didn't expect to have this much fun. Kind and funny, I wish we could have kept going~",
	},
}

// Service generates the character's lines with an eino chat chain. Every
// method degrades to canned text when no model is configured.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	prompts      *PersonaPromptManager
	historyLimit int
	log          *logrus.Entry
	pick         func(n int) int
}

// NewService builds the reply chain on top of chatModel, which may be nil.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 10
	}

	svc := &Service{
		prompts:      NewPersonaPromptManager(),
		historyLimit: historyLimit,
		log:          logging.New("ai"),
		pick:         rand.Intn,
	}
	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	svc.chain = runnable
	return svc, nil
}

// Enabled reports whether replies come from a model.
func (s *Service) Enabled() bool {
	return s != nil && s.chain != nil
}

// Reply generates the character's answer to text given the conversation so
// far. It never returns an empty string.
func (s *Service) Reply(ctx context.Context, character persona.Persona, prior []chat.Entry, text string) string {
	if !s.Enabled() {
		return FallbackReply
	}

	input := map[string]any{
		"system":  s.prompts.BuildSystemPrompt(character),
		"history": s.buildHistoryMessages(prior),
		"query":   text,
	}

	content, err := s.invoke(ctx, input)
	if err != nil {
		s.log.WithError(err).WithField("persona", character.ID).Warn("character reply failed, using fallback")
		return FallbackReply
	}

	reply := stripSpeakerPrefix(content, character.Name)
	if reply == "" {
		return FallbackReply
	}
	s.log.WithFields(logrus.Fields{"persona": character.ID, "length": len(reply)}).Debug("generated character reply")
	return reply
}

// Impression writes the character's closing impression. The tone follows
// the affinity band; a canned line from the same band is used on failure.
func (s *Service) Impression(ctx context.Context, character persona.Persona, transcript []chat.Entry, affinity float64) string {
	band := impression.BandOf(affinity)
	fallback := s.fallbackImpression(band)
	if !s.Enabled() {
		return fallback
	}

	input := map[string]any{
		"system":  s.prompts.BuildImpressionPrompt(character, band),
		"history": []*schema.Message(nil),
		"query":   "Today's conversation:\n" + formatTranscript(transcript, character.Name),
	}

	content, err := s.invoke(ctx, input)
	if err != nil {
		s.log.WithError(err).WithField("band", band).Warn("impression generation failed, using fallback")
		return fallback
	}
	return content
}

func (s *Service) invoke(ctx context.Context, input map[string]any) (string, error) {
	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(msg.Content), nil
}

func (s *Service) fallbackImpression(band impression.Band) string {
	lines := fallbackImpressions[band]
	return lines[s.pick(len(lines))]
}

// buildHistoryMessages keeps the last historyLimit participant and character
// entries. Coach entries are not part of the character's view.
func (s *Service) buildHistoryMessages(entries []chat.Entry) []*schema.Message {
	history := make([]*schema.Message, 0, len(entries))
	for _, entry := range entries {
		switch entry.Origin {
		case chat.OriginParticipant:
			history = append(history, schema.UserMessage(entry.Body))
		case chat.OriginCharacter:
			history = append(history, schema.AssistantMessage(entry.Body, nil))
		}
	}
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}
	return history
}

func formatTranscript(entries []chat.Entry, characterName string) string {
	var b strings.Builder
	for _, entry := range entries {
		switch entry.Origin {
		case chat.OriginParticipant:
			b.WriteString("Guest: ")
		case chat.OriginCharacter:
			b.WriteString(characterName)
			b.WriteString(": ")
		default:
			continue
		}
		b.WriteString(strings.TrimSpace(entry.Body))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "(nothing was said)"
	}
	return strings.TrimSpace(b.String())
}

func stripSpeakerPrefix(content, name string) string {
	content = strings.TrimSpace(content)
	if name == "" {
		return content
	}
	for _, sep := range []string{":", "："} {
		if rest, ok := strings.CutPrefix(content, name+sep); ok {
			return strings.TrimSpace(rest)
		}
	}
	return content
}
