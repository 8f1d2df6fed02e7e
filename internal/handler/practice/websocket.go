// Package practice serves practice sessions over a websocket. Each
// connection drives its own orchestrator against the in-process backend.
package practice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/practice"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
	maxTurns   = 50
)

var errUnknownCommand = errors.New("unknown command")

// sessionReleaser is implemented by gateways that hold per-session state.
type sessionReleaser interface {
	DeleteSession(ctx context.Context, sessionID string)
}

type Handler struct {
	gateway   practice.Gateway
	turnLimit int
	opts      practice.Options
	upgrader  websocket.Upgrader
	log       *logrus.Entry
	now       func() time.Time
}

// New returns a websocket handler. A browser Origin must be listed in
// allowedOrigins unless the list contains "*".
func New(gateway practice.Gateway, turnLimit int, opts practice.Options, allowedOrigins []string) *Handler {
	h := &Handler{
		gateway:   gateway,
		turnLimit: turnLimit,
		opts:      opts,
		log:       logging.New("handler.practice"),
		now:       time.Now,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/practice/ws", h.handleWebSocket)
}

type connection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	log     *logrus.Entry
}

func (c *connection) write(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(f)
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	limit, err := parseTurns(r.URL.Query().Get("turns"), h.turnLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &connection{conn: ws, log: h.log}
	orch := practice.NewOrchestrator(practice.NewSession(limit), h.gateway, h.opts)

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		h.forward(conn, orch.Events())
	}()
	defer func() {
		sessionID := orch.Snapshot().SessionID
		_ = orch.Close()
		<-forwarded
		h.release(sessionID)
	}()

	if err := orch.Start(ctx); err != nil {
		_ = conn.write(rejection(err, h.now()))
		return
	}

	log := h.log.WithField("session_id", orch.Snapshot().SessionID)
	log.Info("practice connection opened")
	defer log.Info("practice connection closed")

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.pingLoop(ctx, conn)

	for {
		var cmd command
		if err := ws.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.dispatch(ctx, orch, cmd); err != nil {
			if werr := conn.write(rejection(err, h.now())); werr != nil {
				return
			}
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, orch *practice.Orchestrator, cmd command) error {
	switch cmd.Type {
	case CommandSubmit:
		return orch.SubmitTurn(ctx, cmd.Text)
	case CommandEnd:
		return orch.RequestSummary(ctx)
	case CommandRestart:
		previous := orch.Snapshot().SessionID
		err := orch.Restart(ctx)
		if orch.Snapshot().SessionID != previous {
			h.release(previous)
		}
		return err
	default:
		return fmt.Errorf("%w %q", errUnknownCommand, cmd.Type)
	}
}

// release frees the backend state of a session the connection no longer
// drives.
func (h *Handler) release(sessionID string) {
	releaser, ok := h.gateway.(sessionReleaser)
	if !ok || sessionID == "" {
		return
	}
	releaser.DeleteSession(context.Background(), sessionID)
	h.log.WithField("session_id", sessionID).Debug("practice session released")
}

// forward writes every orchestrator event until the channel closes. Write
// failures are logged once; the read loop notices the dead connection.
func (h *Handler) forward(conn *connection, events <-chan practice.Event) {
	failed := false
	for ev := range events {
		if failed {
			continue
		}
		if err := conn.write(frameFromEvent(ev, h.now())); err != nil {
			conn.log.WithError(err).Debug("dropping events for closed connection")
			failed = true
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

func parseTurns(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxTurns {
		return 0, fmt.Errorf("turns must be between 1 and %d", maxTurns)
	}
	return n, nil
}
