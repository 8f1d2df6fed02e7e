// Package persona serves the character roster.
package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/tennokoe/internal/model/persona"
	"github.com/zhouzirui/tennokoe/pkg/utils"
)

// Handler lists personas and exposes the one sessions talk to.
type Handler struct {
	personas  persona.Store
	character string
}

// New returns a handler; character is the id of the active persona.
func New(personas persona.Store, character string) *Handler {
	return &Handler{personas: personas, character: character}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleList)
	r.Get("/personas/active", h.handleActive)
	r.Get("/personas/{personaID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

func (h *Handler) handleActive(w http.ResponseWriter, _ *http.Request) {
	h.respondPersona(w, h.character)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.respondPersona(w, chi.URLParam(r, "personaID"))
}

func (h *Handler) respondPersona(w http.ResponseWriter, id string) {
	p, ok := h.personas.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
