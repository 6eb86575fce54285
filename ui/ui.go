// Package ui implements the interactive terminal frontend. It is a
// Bubble Tea program wrapped around the agent orchestrator: the input area
// submits turns, the transcript viewport renders streamed output, tool
// activity and errors, and the orchestrator's event channel is bridged into
// the Bubble Tea message loop.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tars/agent"
)

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryToolCall
	entryToolResult
	entryError
	entryInfo
)

// entry is one rendered line group of the transcript.
type entry struct {
	kind entryKind
	text string
}

// agentEventMsg wraps one orchestrator event for the Bubble Tea loop.
type agentEventMsg agent.Event

// eventsClosedMsg signals that the orchestrator event channel closed.
type eventsClosedMsg struct{}

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	resultStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	orch *agent.Orchestrator
	log  zerolog.Logger

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	entries   []entry
	streaming bool
	busy      bool
	status    string
	width     int
	height    int
	ready     bool
}

// NewModel builds the initial UI state over the given orchestrator.
func NewModel(orch *agent.Orchestrator, logger zerolog.Logger) Model {
	input := textarea.New()
	input.Placeholder = "Ask anything. Enter sends, Ctrl+J inserts a newline, Esc cancels."
	input.Prompt = "┃ "
	input.SetHeight(3)
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.Focus()
	// Enter submits the prompt, so newline moves to Ctrl+J.
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j"))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))

	return Model{
		orch:    orch,
		log:     logger.With().Str("component", "ui").Logger(),
		input:   input,
		spinner: sp,
		entries: []entry{{kind: entryInfo, text: "tars is ready. Type a message and press Enter."}},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitEvent(m.orch.Events()),
	)
}

// waitEvent blocks on the orchestrator event channel and delivers the next
// event into the program. It is re-armed after every delivery.
func waitEvent(events <-chan agent.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return agentEventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.orch.Cancel()
			return m, tea.Quit
		case "esc":
			if m.busy {
				m.orch.Cancel()
				m.status = "cancelling..."
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case agentEventMsg:
		m.applyEvent(agent.Event(msg))
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, waitEvent(m.orch.Events())

	case eventsClosedMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit hands the input to the orchestrator and clears the prompt.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if err := m.orch.Submit(context.Background(), text); err != nil {
		if errors.Is(err, agent.ErrTurnInProgress) {
			m.status = "still working on the previous message"
			return m, nil
		}
		m.appendEntry(entry{kind: entryError, text: "submit failed: " + err.Error()})
		return m, nil
	}

	m.input.Reset()
	m.busy = true
	m.streaming = false
	m.status = "thinking..."
	m.appendEntry(entry{kind: entryUser, text: text})
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
	return m, nil
}

// applyEvent folds one orchestrator event into the transcript. Text deltas
// extend the open assistant entry; everything else closes it.
func (m *Model) applyEvent(ev agent.Event) {
	switch ev.Type {
	case agent.EventTextDelta:
		if m.streaming && len(m.entries) > 0 && m.entries[len(m.entries)-1].kind == entryAssistant {
			m.entries[len(m.entries)-1].text += ev.Text
		} else {
			m.appendEntry(entry{kind: entryAssistant, text: ev.Text})
			m.streaming = true
		}
	case agent.EventToolCallStarted:
		m.streaming = false
		m.status = "running " + ev.ToolCall.Name + "..."
		m.appendEntry(entry{kind: entryToolCall, text: formatToolCall(*ev.ToolCall)})
	case agent.EventToolCallFinished:
		m.status = "thinking..."
		kind := entryToolResult
		if ev.ToolResult.IsError {
			kind = entryError
		}
		m.appendEntry(entry{kind: kind, text: formatToolResult(*ev.ToolResult)})
	case agent.EventTurnFinished:
		m.busy = false
		m.streaming = false
		m.status = ""
	case agent.EventTurnFailed:
		m.busy = false
		m.streaming = false
		m.status = ""
		m.appendEntry(entry{kind: entryError, text: "provider error (" + string(ev.ErrKind) + "): " + ev.ErrMessage})
		m.appendEntry(entry{kind: entryInfo, text: "your message is kept; press Enter to resend it"})
	case agent.EventTurnCancelled:
		m.busy = false
		m.streaming = false
		m.status = ""
		m.appendEntry(entry{kind: entryInfo, text: "turn cancelled"})
	}
}

func (m *Model) appendEntry(e entry) {
	m.entries = append(m.entries, e)
}

// layout sizes the viewport to the space left over by the input area.
func (m *Model) layout() {
	inputHeight := m.input.Height() + 1
	vpHeight := m.height - inputHeight - 2
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(m.width - 2)
}

// renderTranscript renders all entries into the viewport content.
func (m Model) renderTranscript() string {
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		switch e.kind {
		case entryUser:
			b.WriteString(userStyle.Render("You: ") + e.text)
		case entryAssistant:
			b.WriteString(assistantStyle.Render("Tars: ") + e.text)
		case entryToolCall:
			b.WriteString(toolStyle.Render(e.text))
		case entryToolResult:
			b.WriteString(resultStyle.Render(e.text))
		case entryError:
			b.WriteString(errorStyle.Render(e.text))
		case entryInfo:
			b.WriteString(infoStyle.Render(e.text))
		}
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	statusLine := ""
	if m.busy {
		statusLine = m.spinner.View() + " " + statusStyle.Render(m.status)
	} else if m.status != "" {
		statusLine = statusStyle.Render(m.status)
	}

	return m.viewport.View() + "\n" + statusLine + "\n" + m.input.View()
}

// Run starts the terminal program and blocks until the user quits.
func Run(orch *agent.Orchestrator, logger zerolog.Logger) error {
	program := tea.NewProgram(NewModel(orch, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return errors.Wrap(err, "terminal UI failed")
	}
	return nil
}
