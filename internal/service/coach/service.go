package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/analysis/emotion"
	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
)

var errMissingJSON = errors.New("missing json object")

// Config controls the coaching service.
type Config struct {
	// LLMEnabled turns on model-written feedback for turns no rule objects to.
	LLMEnabled bool
	// HistoryTurns is how many recent participant turns the coach sees.
	HistoryTurns int
}

// Feedback is the coach's reaction to one participant turn.
type Feedback struct {
	Text    string
	Tags    []string
	Emotion emotion.Label
	Source  string
}

// Sources of feedback.
const (
	SourceRule     = "rule"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Service reviews participant turns. Rules answer first; otherwise an eino
// classifier chain writes structured feedback. Any model failure yields empty
// feedback rather than an error.
type Service struct {
	enabled      bool
	classifier   compose.Runnable[map[string]any, *schema.Message]
	rules        []Rule
	historyTurns int
	schema       string
	log          *logrus.Entry
}

// NewService creates the coaching service. chatModel may be nil.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	historyTurns := cfg.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = 3
	}

	svc := &Service{
		enabled:      cfg.LLMEnabled && chatModel != nil,
		rules:        DefaultRules(),
		historyTurns: historyTurns,
		log:          logging.New("coach"),
	}

	if !svc.enabled {
		return svc, nil
	}

	payloadSchema, err := PayloadSchema()
	if err != nil {
		return nil, err
	}
	svc.schema = payloadSchema

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{request}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile coach chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled reports whether model feedback is available.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Review produces feedback for text, the participant's newest turn, given the
// log as it stood before it. The participant's emotion is always tagged.
func (s *Service) Review(ctx context.Context, character persona.Persona, prior []chat.Entry, text string) Feedback {
	detected := emotion.Detect(text).Emotion

	for _, rule := range s.rules {
		if rule.Match(text) {
			return Feedback{
				Text:    rule.Advisory,
				Tags:    []string{rule.Pattern, string(detected)},
				Emotion: detected,
				Source:  SourceRule,
			}
		}
	}

	if !s.Enabled() {
		return s.fallback(detected)
	}

	input := map[string]any{
		"system":  buildSystemPrompt(character, s.schema),
		"request": buildRequest(character, prior, text, detected, s.historyTurns),
	}

	msg, err := s.classifier.Invoke(ctx, input)
	if err != nil {
		s.log.WithError(err).Warn("coach classifier invoke failed, returning no feedback")
		return s.fallback(detected)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.fallback(detected)
	}

	payload, err := parsePayload(msg.Content)
	if err != nil {
		s.log.WithError(err).Warn("coach output parse failed, returning no feedback")
		return s.fallback(detected)
	}

	label := detected
	if parsed, ok := emotion.Parse(payload.Emotion); ok {
		label = parsed
	}

	text = payload.Render()
	if text == "" {
		return s.fallback(label)
	}

	return Feedback{
		Text:    text,
		Tags:    mergeTags(payload.Patterns, string(label)),
		Emotion: label,
		Source:  SourceModel,
	}
}

func (s *Service) fallback(label emotion.Label) Feedback {
	return Feedback{
		Tags:    []string{string(label)},
		Emotion: label,
		Source:  SourceFallback,
	}
}

// Payload is the JSON object the coach model must return.
type Payload struct {
	Emotion  string   `json:"emotion" jsonschema:"enum=joy,enum=relief,enum=anticipation,enum=anxiety,enum=confusion,enum=sadness,enum=anger,enum=impatience,enum=dejection,enum=neutral,description=The participant's dominant emotion"`
	Feelings string   `json:"feelings" jsonschema:"description=How the character probably felt hearing this turn, in her inner voice"`
	Good     string   `json:"good" jsonschema:"description=What made a good impression"`
	Concern  string   `json:"concern" jsonschema:"description=What may have felt off or lonely for the character"`
	Advice   string   `json:"advice" jsonschema:"description=A concrete better phrasing or next step"`
	Patterns []string `json:"patterns,omitempty" jsonschema:"description=Short snake_case tags for behaviour patterns noticed in the turn"`
}

// Render formats the payload as the four-part feedback shown to the
// participant. Empty sections are left out.
func (p Payload) Render() string {
	sections := []struct{ title, body string }{
		{"Her feelings", p.Feelings},
		{"What worked", p.Good},
		{"What felt off", p.Concern},
		{"Advice", p.Advice},
	}
	var parts []string
	for _, section := range sections {
		if body := strings.TrimSpace(section.body); body != "" {
			parts = append(parts, fmt.Sprintf("[%s]\n%s", section.title, body))
		}
	}
	return strings.Join(parts, "\n\n")
}

// PayloadSchema returns the JSON schema of Payload, inlined so it can be
// pasted into a prompt.
func PayloadSchema() (string, error) {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	data, err := json.Marshal(reflector.Reflect(&Payload{}))
	if err != nil {
		return "", fmt.Errorf("marshal coach payload schema: %w", err)
	}
	return string(data), nil
}

// parsePayload extracts the first JSON object from the model output.
func parsePayload(content string) (*Payload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, errMissingJSON
	}

	payload := &Payload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func mergeTags(patterns []string, label string) []string {
	seen := make(map[string]struct{}, len(patterns)+1)
	tags := make([]string, 0, len(patterns)+1)
	for _, tag := range append(patterns, label) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func buildSystemPrompt(character persona.Persona, payloadSchema string) string {
	name := character.Name
	if name == "" {
		name = "the character"
	}
	return fmt.Sprintf(`You are a warm, frank conversation coach who understands people's feelings.
You evaluate the PLAYER's words, not %[1]s's. %[1]s is the conversation partner.
Judge how the player's newest turn made %[1]s feel:
1. Has the previous topic run its course, so moving on is natural?
2. Does the timing of any topic change fit the mood of the conversation?
3. Did the player react properly to what %[1]s said? If the topic has already changed, that is fine.
4. Would %[1]s feel happy, lonely, or eager to talk more?
5. Is there a good balance of empathy, questions and self-disclosure?
If a topic was ignored two or three times it is over; judge the player's skill in the new topic instead of forcing it back.
Write two or three concrete sentences per section.
Reply with exactly one JSON object matching this schema and nothing else:
%[2]s`, name, payloadSchema)
}

func buildRequest(character persona.Persona, prior []chat.Entry, text string, detected emotion.Label, turns int) string {
	recent := recentConversation(prior, turns, character.Name)
	if recent == "" {
		recent = "(this is the first turn)"
	}
	return fmt.Sprintf("=== Recent conversation ===\n%s\n\n=== Turn to evaluate ===\nPlayer: %s\nPlayer's apparent emotion: %s",
		recent, strings.TrimSpace(text), detected)
}

// recentConversation keeps the entries of the last n participant turns,
// without coach entries, in order.
func recentConversation(entries []chat.Entry, n int, characterName string) string {
	if characterName == "" {
		characterName = "Character"
	}

	start := 0
	turns := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Origin != chat.OriginParticipant {
			continue
		}
		turns++
		if turns == n {
			start = i
			break
		}
	}

	var lines []string
	for _, entry := range entries[start:] {
		switch entry.Origin {
		case chat.OriginParticipant:
			lines = append(lines, "Player: "+strings.TrimSpace(entry.Body))
		case chat.OriginCharacter:
			lines = append(lines, characterName+": "+strings.TrimSpace(entry.Body))
		}
	}
	return strings.Join(lines, "\n")
}
