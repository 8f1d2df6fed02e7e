// Package mocks provides scripted collaborators for tests.
package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrNoScript is returned when no script matches a call.
var ErrNoScript = errors.New("no scripted response matches the prompt")

// Script is one canned answer of a ScriptedChatModel.
type Script struct {
	// Contains must appear in the rendered prompt for the script to match.
	// An empty value matches any prompt.
	Contains string
	Reply    string
	Err      error
	// Repeatable scripts are not consumed when they match.
	Repeatable bool
}

// ScriptedChatModel implements model.ChatModel with pattern-matched replies.
type ScriptedChatModel struct {
	mu      sync.Mutex
	scripts []Script
	calls   [][]*schema.Message
}

var _ model.ChatModel = (*ScriptedChatModel)(nil)

// NewScriptedChatModel returns a model answering with scripts in order.
func NewScriptedChatModel(scripts ...Script) *ScriptedChatModel {
	return &ScriptedChatModel{scripts: scripts}
}

// Add appends a script.
func (m *ScriptedChatModel) Add(script Script) *ScriptedChatModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, script)
	return m
}

// Generate returns the first matching script.
func (m *ScriptedChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, input)

	rendered := Render(input)
	for i, script := range m.scripts {
		if script.Contains != "" && !strings.Contains(rendered, script.Contains) {
			continue
		}
		if !script.Repeatable {
			m.scripts = append(m.scripts[:i:i], m.scripts[i+1:]...)
		}
		if script.Err != nil {
			return nil, script.Err
		}
		return schema.AssistantMessage(script.Reply, nil), nil
	}
	return nil, ErrNoScript
}

// Stream wraps Generate in a single-chunk stream.
func (m *ScriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is a no-op.
func (m *ScriptedChatModel) BindTools([]*schema.ToolInfo) error {
	return nil
}

// Calls returns the message lists the model was invoked with.
func (m *ScriptedChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.calls...)
}

// Render joins messages as "role: content" lines.
func Render(messages []*schema.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}
