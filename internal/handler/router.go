// Package handler wires the HTTP routes of the practice backend.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/tennokoe/internal/handler/conversation"
	personaHandler "github.com/zhouzirui/tennokoe/internal/handler/persona"
	practiceHandler "github.com/zhouzirui/tennokoe/internal/handler/practice"
	middlewarePkg "github.com/zhouzirui/tennokoe/internal/middleware"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
	"github.com/zhouzirui/tennokoe/internal/practice"
	conversationService "github.com/zhouzirui/tennokoe/internal/service/conversation"
	"github.com/zhouzirui/tennokoe/pkg/utils"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Personas       persona.Store
	Conversation   *conversationService.Service
	TurnLimit      int
	Practice       practice.Options
	AllowedOrigins []string
	AIEnabled      bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "practice API is running"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"status": "healthy", "ai_enabled": deps.AIEnabled})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(deps.Personas, deps.Conversation.Character().ID).RegisterRoutes(api)
		conversation.New(deps.Conversation).RegisterRoutes(api)
		practiceHandler.New(deps.Conversation, deps.TurnLimit, deps.Practice, deps.AllowedOrigins).RegisterRoutes(api)
	})

	return r
}
