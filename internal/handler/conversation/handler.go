// Package conversation exposes the conversation backend over REST.
package conversation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/protocol"
	conversationService "github.com/zhouzirui/tennokoe/internal/service/conversation"
	"github.com/zhouzirui/tennokoe/pkg/utils"
)

// Backend is the subset of the conversation service the routes need.
type Backend interface {
	CreateSession(ctx context.Context) (chat.SessionHandle, error)
	ExchangeTurn(ctx context.Context, sessionID, text string, prior []chat.Entry) (chat.TurnResult, error)
	EndSession(ctx context.Context, sessionID string) (chat.Summary, error)
	Transcript(ctx context.Context, sessionID string) ([]chat.Entry, error)
}

type Handler struct {
	backend Backend
	log     *logrus.Entry
}

func New(backend Backend) *Handler {
	return &Handler{backend: backend, log: logging.New("handler.conversation")}
}

// RegisterRoutes mounts the session and conversation routes relative to r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(strings.TrimPrefix(protocol.PathCreateSession, "/api"), h.handleCreateSession)
	r.Get("/session/{sessionID}/transcript", h.handleTranscript)
	r.Post(strings.TrimPrefix(protocol.PathMessage, "/api"), h.handleMessage)
	r.Post(strings.TrimPrefix(protocol.PathEnd, "/api"), h.handleEnd)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	handle, err := h.backend.CreateSession(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, protocol.FromHandle(handle))
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req protocol.ConversationRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_message is required")
		return
	}

	prior, err := protocol.ToEntries(req.ConversationHistory)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.backend.ExchangeTurn(r.Context(), req.SessionID, req.UserMessage, prior)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, protocol.FromTurnResult(result))
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req protocol.EndRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	summary, err := h.backend.EndSession(r.Context(), req.SessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, protocol.FromSummary(summary))
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	transcript, err := h.backend.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	history, err := protocol.FromEntries(transcript)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, history)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversationService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, conversationService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		h.log.WithError(err).Debug("client went away")
	default:
		h.log.WithError(err).Error("conversation backend failed")
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
