// Package remote talks to a conversation backend over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/tennokoe/internal/logging"
	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/model/persona"
	"github.com/zhouzirui/tennokoe/internal/practice"
	"github.com/zhouzirui/tennokoe/internal/protocol"
)

const maxResponseBytes = 1 << 20

// ErrNotFound is returned for a 404, usually an expired session.
var ErrNotFound = errors.New("not found on backend")

// StatusError is a non-2xx answer other than 404.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client implements practice.Gateway against the REST API served by cmd/api.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Entry
}

var _ practice.Gateway = (*Client)(nil)

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.New("remote"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) CreateSession(ctx context.Context) (chat.SessionHandle, error) {
	var resp protocol.CreateSessionResponse
	if err := c.post(ctx, protocol.PathCreateSession, struct{}{}, &resp); err != nil {
		return chat.SessionHandle{}, fmt.Errorf("create session: %w", err)
	}
	return resp.Handle(), nil
}

func (c *Client) ExchangeTurn(ctx context.Context, sessionID, text string, prior []chat.Entry) (chat.TurnResult, error) {
	history, err := protocol.FromEntries(prior)
	if err != nil {
		return chat.TurnResult{}, fmt.Errorf("encode history: %w", err)
	}
	req := protocol.ConversationRequest{
		SessionID:           sessionID,
		UserMessage:         text,
		ConversationHistory: history,
	}
	var resp protocol.ConversationResponse
	if err := c.post(ctx, protocol.PathMessage, req, &resp); err != nil {
		return chat.TurnResult{}, fmt.Errorf("send message: %w", err)
	}
	return resp.TurnResult(), nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string) (chat.Summary, error) {
	var resp protocol.ImpressionResponse
	if err := c.post(ctx, protocol.PathEnd, protocol.EndRequest{SessionID: sessionID}, &resp); err != nil {
		return chat.Summary{}, fmt.Errorf("end conversation: %w", err)
	}
	return resp.Summary(), nil
}

// ActivePersona asks the backend which character its sessions talk to.
func (c *Client) ActivePersona(ctx context.Context) (persona.Persona, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+protocol.PathActivePersona, nil)
	if err != nil {
		return persona.Persona{}, fmt.Errorf("build request: %w", err)
	}
	var p persona.Persona
	if err := c.do(req, protocol.PathActivePersona, &p); err != nil {
		return persona.Persona{}, fmt.Errorf("fetch persona: %w", err)
	}
	return p, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(started),
	}).Debug("backend call")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	var parsed protocol.ErrorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
