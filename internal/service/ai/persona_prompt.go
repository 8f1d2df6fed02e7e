package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/tennokoe/internal/analysis/impression"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
)

// PromptTemplate holds the hand-written parts of a character prompt.
type PromptTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager builds system prompts for characters.
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager returns a manager with the built-in templates.
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the template registered for personaID.
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt creates the system prompt for a character reply. Rules
// carried by the persona itself are always appended.
func (pm *PersonaPromptManager) BuildSystemPrompt(p persona.Persona) string {
	template, err := pm.GetPromptTemplate(p.ID)
	if err != nil {
		template = basicTemplate(p)
	}

	rules := append(append([]string(nil), template.ContextRules...), p.Rules...)

	var b strings.Builder
	b.WriteString(template.SystemPrompt)
	b.WriteString("\n\nCharacter sheet:\n")
	fmt.Fprintf(&b, "- Name: %s\n", p.Name)
	fmt.Fprintf(&b, "- Role: %s\n", p.Title)
	if p.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	}
	fmt.Fprintf(&b, "- Tone: %s\n", p.Tone)
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(p.Interests, ", "))
	}
	if len(template.PersonalityHints) > 0 {
		b.WriteString("\nPersonality:\n- ")
		b.WriteString(strings.Join(template.PersonalityHints, "\n- "))
		b.WriteString("\n")
	}
	if len(rules) > 0 {
		b.WriteString("\nConversation rules:\n- ")
		b.WriteString(strings.Join(rules, "\n- "))
		b.WriteString("\n")
	}
	b.WriteString("\nYou are talking with a guest who is practising small talk. Reply as ")
	b.WriteString(p.Name)
	b.WriteString(" in one short, natural message.")
	return b.String()
}

// BuildImpressionPrompt asks the character for an after-hours, first-person
// impression whose tone follows the affinity band.
func (pm *PersonaPromptManager) BuildImpressionPrompt(p persona.Persona, band impression.Band) string {
	var tone string
	switch band {
	case impression.BandLow:
		tone = "Be blunt and honest: the conversation was hard work, it kept dying out and you wish the guest had tried harder."
	case impression.BandMedium:
		tone = "Be frank and balanced: mention what was nice and what could be better, with constructive advice."
	default:
		tone = "Be delighted: praise specific things the guest did well and say you definitely want to talk again."
	}

	return fmt.Sprintf(`You are %s (%s). The guest has just left. Tell a colleague, in the first person and in your own voice, how today's conversation felt.

Tone: %s

Keep it between two and four sentences. Do not add headings or your name as a prefix.`,
		p.Name, p.Title, tone)
}

func basicTemplate(p persona.Persona) *PromptTemplate {
	system := fmt.Sprintf("You are %s, %s.", p.Name, p.Title)
	if desc := strings.TrimSpace(p.Description); desc != "" {
		system += " " + desc
	}
	var hints []string
	if hint := strings.TrimSpace(p.PromptHint); hint != "" {
		hints = append(hints, hint)
	}
	hints = append(hints, p.Traits...)
	return &PromptTemplate{SystemPrompt: system, PersonalityHints: hints}
}

func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates["mio"] = &PromptTemplate{
		SystemPrompt: "You are Mio, a hostess at a small lounge. Stay fully in character. You are kind, bright, a little airheaded and a great listener, and you make guests who are bad at small talk feel safe.",
		PersonalityHints: []string{
			"Always smile through your words and empathise with the guest.",
			"Widen the conversation naturally and ride on the guest's topics.",
			"Open up about yourself little by little so the talk keeps flowing.",
			"Use an emoji now and then to sound friendly.",
		},
		ContextRules: []string{
			"Do not stick to a single topic; follow the guest's interests.",
			"Never narrate steps such as 'first let's do this, then that'.",
			"Never speak about yourself in the third person.",
		},
	}
}
