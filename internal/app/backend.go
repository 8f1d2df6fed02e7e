// Package app assembles the in-process conversation backend from config.
package app

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/config"
	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
	"github.com/zhouzirui/tennokoe/internal/practice"
	"github.com/zhouzirui/tennokoe/internal/service/ai"
	"github.com/zhouzirui/tennokoe/internal/service/coach"
	"github.com/zhouzirui/tennokoe/internal/service/conversation"
)

// Backend is everything the API server and the local practice client share.
type Backend struct {
	Personas     *persona.MemoryStore
	Character    persona.Persona
	AI           *ai.Service
	Coach        *coach.Service
	Conversation *conversation.Service
}

// NewBackend loads the roster and builds the services. chatModel overrides
// the model built from cfg.AI; when both are absent the backend runs on
// canned replies and rule-based coaching.
func NewBackend(ctx context.Context, cfg *config.Config, chatModel model.ChatModel) (*Backend, error) {
	log := logging.New("app")

	roster := persona.Seed()
	if cfg.Practice.PersonaFile != "" {
		loaded, err := persona.LoadFile(cfg.Practice.PersonaFile)
		if err != nil {
			return nil, err
		}
		roster = loaded
		log.WithField("file", cfg.Practice.PersonaFile).Info("persona roster loaded")
	}
	store := persona.NewMemoryStore(roster)

	character, ok := store.FindByID(cfg.Practice.CharacterID)
	if !ok || character.IsCoach() {
		return nil, fmt.Errorf("character %q not found in roster", cfg.Practice.CharacterID)
	}

	if chatModel == nil && cfg.AI.Enabled() {
		built, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to initialize chat model, continuing with canned replies")
		} else {
			chatModel = built
		}
	} else if chatModel == nil {
		log.Info("ark credentials not configured, skipping model initialization")
	}

	aiSvc, err := ai.NewService(ctx, chatModel, cfg.AI)
	if err != nil {
		return nil, err
	}

	coachSvc, err := coach.NewService(ctx, chatModel, coach.Config{LLMEnabled: cfg.AI.CoachLLMEnabled})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"character": character.ID,
		"ai":        aiSvc.Enabled(),
		"coach_llm": coachSvc.Enabled(),
	}).Info("conversation backend ready")

	return &Backend{
		Personas:     store,
		Character:    character,
		AI:           aiSvc,
		Coach:        coachSvc,
		Conversation: conversation.NewService(character, aiSvc, coachSvc),
	}, nil
}

// PracticeOptions converts the pacing settings for an orchestrator.
func PracticeOptions(cfg config.PracticeConfig) practice.Options {
	opts := practice.DefaultOptions()
	opts.RevealDelay = cfg.RevealDelay
	opts.SummaryDelay = cfg.SummaryDelay
	return opts
}
