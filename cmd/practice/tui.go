package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/tennokoe/internal/model/chat"
	"github.com/zhouzirui/tennokoe/internal/practice"
)

// Message types
type eventMsg practice.Event
type eventsClosedMsg struct{}
type actionDoneMsg struct{ err error }

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	youStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	herStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	coachStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).PaddingLeft(2)
	summaryBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

type tuiModel struct {
	ctx           context.Context
	orch          driver
	characterName string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	snap   practice.Snapshot
	status string
	width  int
	ready  bool
}

func newTUIModel(ctx context.Context, orch driver, characterName string) tuiModel {
	input := textarea.New()
	input.Placeholder = "Say something…"
	input.ShowLineNumbers = false
	input.CharLimit = 500
	input.SetHeight(2)
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return tuiModel{
		ctx:           ctx,
		orch:          orch,
		characterName: characterName,
		viewport:      viewport.New(80, 20),
		input:         input,
		spinner:       sp,
		snap:          orch.Snapshot(),
		width:         80,
	}
}

func waitForEvent(events <-chan practice.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForEvent(m.orch.Events()))
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-7, 3)
		m.input.SetWidth(msg.Width)
		m.ready = true
		m.refresh()
		return m, nil

	case eventMsg:
		ev := practice.Event(msg)
		switch ev.Kind {
		case practice.EventExchangeFailed, practice.EventSummaryFailed:
			m.status = describe(ev.Err)
		case practice.EventSessionStarted:
			m.status = ""
		}
		m.refresh()
		return m, waitForEvent(m.orch.Events())

	case eventsClosedMsg:
		return m, tea.Quit

	case actionDoneMsg:
		if msg.err != nil {
			m.status = describe(msg.err)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+e":
			m.status = ""
			return m, m.act(m.orch.RequestSummary)
		case "ctrl+r":
			m.status = ""
			return m, m.act(m.orch.Restart)
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.status = ""
			if err := m.orch.SubmitTurn(m.ctx, text); err != nil {
				m.status = describe(err)
			} else {
				m.input.Reset()
			}
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// act runs a blocking orchestrator call off the update loop.
func (m tuiModel) act(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: fn(ctx)}
	}
}

func (m *tuiModel) refresh() {
	m.snap = m.orch.Snapshot()
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m tuiModel) transcript() string {
	wrap := lipgloss.NewStyle().Width(max(m.width-2, 20))
	var b strings.Builder
	for _, e := range m.snap.Entries {
		b.WriteString(wrap.Render(m.renderEntry(e)))
		b.WriteString("\n")
	}
	if m.snap.Summary != nil {
		b.WriteString("\n")
		b.WriteString(summaryBox.Render(strings.Join(summaryLines(*m.snap.Summary, m.characterName), "\n")))
		b.WriteString("\n")
	}
	return b.String()
}

func (m tuiModel) renderEntry(e chat.Entry) string {
	name := speaker(e.Origin, m.characterName)
	switch e.Origin {
	case chat.OriginParticipant:
		return youStyle.Render(name+":") + " " + e.Body
	case chat.OriginCharacter:
		return herStyle.Render(name+":") + " " + e.Body
	default:
		return coachStyle.Render(e.Body)
	}
}

func (m tuiModel) header() string {
	title := fmt.Sprintf("Talking with %s · turn %d/%d", m.characterName, m.snap.TurnCount, m.snap.TurnLimit)
	if m.snap.Completed {
		title += " · finished"
	}
	return headerStyle.Render(title)
}

func (m tuiModel) activity() string {
	switch m.snap.State {
	case practice.StateAwaitingRemoteTurn:
		return m.spinner.View() + " " + m.characterName + " is thinking…"
	case practice.StateStagingCharacterReply:
		return m.spinner.View() + " " + m.characterName + " is typing…"
	case practice.StateRequestingSummary:
		return m.spinner.View() + " " + m.characterName + " is thinking about how it went…"
	default:
		return ""
	}
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.activity())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send · ctrl+e end · ctrl+r restart · esc quit"))
	return b.String()
}

func runTUI(ctx context.Context, orch driver, characterName string) error {
	defer orch.Close()
	program := tea.NewProgram(newTUIModel(ctx, orch, characterName), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
