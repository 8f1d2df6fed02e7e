package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/practice"
)

type fakeDriver struct {
	events    chan practice.Event
	snap      practice.Snapshot
	submitted []string
	summaries int
	restarts  int
	submitErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		events: make(chan practice.Event, 8),
		snap:   practice.Snapshot{State: practice.StateIdle, TurnLimit: 5},
	}
}

func (f *fakeDriver) Events() <-chan practice.Event { return f.events }
func (f *fakeDriver) Snapshot() practice.Snapshot   { return f.snap }
func (f *fakeDriver) Close() error                  { return nil }

func (f *fakeDriver) SubmitTurn(_ context.Context, text string) error {
	if text == "" {
		return practice.ErrEmptyTurn
	}
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, text)
	f.snap.TurnCount++
	f.snap.State = practice.StateAwaitingRemoteTurn
	f.snap.Entries = append(f.snap.Entries, chat.ParticipantEntry(text))
	return nil
}

func (f *fakeDriver) RequestSummary(context.Context) error {
	f.summaries++
	return nil
}

func (f *fakeDriver) Restart(context.Context) error {
	f.restarts++
	return nil
}

func typeText(m tea.Model, text string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestTUISubmitsOnEnter(t *testing.T) {
	drv := newFakeDriver()
	var m tea.Model = newTUIModel(context.Background(), drv, "Mio")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m = typeText(m, "hi Mio")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []string{"hi Mio"}, drv.submitted)
	view := m.View()
	assert.Contains(t, view, "turn 1/5")
	assert.Contains(t, view, "hi Mio")
	assert.Contains(t, view, "Mio is thinking")
	assert.Empty(t, m.(tuiModel).input.Value())
}

func TestTUIShowsRejection(t *testing.T) {
	drv := newFakeDriver()
	drv.submitErr = practice.ErrSessionCompleted
	var m tea.Model = newTUIModel(context.Background(), drv, "Mio")

	m = typeText(m, "again")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Contains(t, m.View(), "This conversation is over.")
	assert.Equal(t, "again", m.(tuiModel).input.Value())
}

func TestTUIEndAndRestartRunAsCommands(t *testing.T) {
	drv := newFakeDriver()
	var m tea.Model = newTUIModel(context.Background(), drv, "Mio")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	assert.Equal(t, actionDoneMsg{}, cmd())
	assert.Equal(t, 1, drv.summaries)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, drv.restarts)
}

func TestTUIRendersSummaryAndFailures(t *testing.T) {
	drv := newFakeDriver()
	var m tea.Model = newTUIModel(context.Background(), drv, "Mio")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	drv.snap.State = practice.StateSummaryReady
	drv.snap.Completed = true
	drv.snap.Summary = &chat.Summary{NarrativeText: "It was fun!", AffinityScore: 80}
	m, cmd := m.Update(eventMsg{Kind: practice.EventSummaryReady})
	require.NotNil(t, cmd, "events keep being awaited")

	view := m.View()
	assert.Contains(t, view, "It was fun!")
	assert.Contains(t, view, "finished")

	m, _ = m.Update(eventMsg{Kind: practice.EventSummaryFailed, Err: &practice.SummaryError{Err: assert.AnError}})
	assert.Contains(t, m.View(), "Could not get the summary")
}

func TestTUIQuitsWhenEventsClose(t *testing.T) {
	drv := newFakeDriver()
	var m tea.Model = newTUIModel(context.Background(), drv, "Mio")
	_, cmd := m.Update(eventsClosedMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
