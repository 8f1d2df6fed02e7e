package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
	"github.com/zhouzirui/tennokoe/internal/protocol"
)

func newBackend(t *testing.T, routes func(r chi.Router)) *Client {
	t.Helper()
	r := chi.NewRouter()
	routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestCreateSession(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client := newBackend(t, func(r chi.Router) {
		r.Post(protocol.PathCreateSession, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(protocol.CreateSessionResponse{SessionID: "abc", CreatedAt: protocol.Time{Time: created}})
		})
	})

	handle, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", handle.ID)
	assert.True(t, created.Equal(handle.CreatedAt))
}

func TestCreateSessionAcceptsZonelessTimestamp(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Post(protocol.PathCreateSession, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"session_id":"py","created_at":"2025-06-01T12:00:00.250000"}`))
		})
	})

	handle, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "py", handle.ID)
	assert.True(t, time.Date(2025, 6, 1, 12, 0, 0, 250_000_000, time.UTC).Equal(handle.CreatedAt))
}

func TestExchangeTurnSendsPriorHistory(t *testing.T) {
	var got protocol.ConversationRequest
	client := newBackend(t, func(r chi.Router) {
		r.Post(protocol.PathMessage, func(w http.ResponseWriter, req *http.Request) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(protocol.ConversationResponse{
				BotResponse:      "Nice to meet you!",
				VoiceFeedback:    "[Advice]\nAsk her something back.",
				DetectedPatterns: []string{"joy"},
			})
		})
	})

	prior := []chat.Entry{chat.ParticipantEntry("hello"), chat.CharacterEntry("hi there")}
	result, err := client.ExchangeTurn(context.Background(), "abc", "how are you?", prior)
	require.NoError(t, err)

	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, "how are you?", got.UserMessage)
	require.Len(t, got.ConversationHistory, 2)
	assert.Equal(t, protocol.RoleUser, got.ConversationHistory[0].Role)
	assert.Equal(t, protocol.RoleBot, got.ConversationHistory[1].Role)

	assert.Equal(t, "Nice to meet you!", result.CharacterReply)
	assert.Equal(t, []string{"joy"}, result.DetectedTags)
}

func TestEndSessionClampsScores(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Post(protocol.PathEnd, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"impression_text":"fun!","emotion_scores":{"fun":120,"comfort":75},"memorable_moments":[]}`))
		})
	})

	summary, err := client.EndSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "fun!", summary.NarrativeText)
	assert.Zero(t, summary.AffinityScore)
	fun, _ := summary.EmotionScores.Get("fun")
	assert.Equal(t, 100.0, fun)
}

func TestStatusMapping(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Post(protocol.PathMessage, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		r.Post(protocol.PathEnd, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: "model unavailable"})
		})
	})

	_, err := client.ExchangeTurn(context.Background(), "gone", "hi", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.EndSession(context.Background(), "abc")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Equal(t, "model unavailable", statusErr.Message)
}

func TestRequestHonoursContext(t *testing.T) {
	release := make(chan struct{})
	client := newBackend(t, func(r chi.Router) {
		r.Post(protocol.PathCreateSession, func(w http.ResponseWriter, req *http.Request) {
			select {
			case <-release:
			case <-req.Context().Done():
			}
		})
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.CreateSession(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestActivePersona(t *testing.T) {
	client := newBackend(t, func(r chi.Router) {
		r.Get(protocol.PathActivePersona, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(persona.Seed()[0])
		})
	})

	p, err := client.ActivePersona(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mio", p.Name)
}
