package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tailored-agentic-units/store/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#BD93F9"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// changedMsg is sent by the store subscriber after every commit.
type changedMsg struct{}

// failureMsg carries a deferred action failure from the store's error handler.
type failureMsg struct {
	err error
}

type model struct {
	store    *store.Store[State]
	keys     keyMap
	failures <-chan error

	input  textinput.Model
	adding bool
	cursor int
	status string
}

func newModel(s *store.Store[State], failures <-chan error) model {
	ti := textinput.New()
	ti.Placeholder = "what needs doing?"
	ti.CharLimit = 120

	return model{
		store:    s,
		keys:     defaultKeyMap(),
		failures: failures,
		input:    ti,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return waitForFailure(m.failures)
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.clampCursor()
		return m, nil

	case failureMsg:
		m.status = msg.err.Error()
		return m, waitForFailure(m.failures)

	case tea.KeyMsg:
		if m.adding {
			return m.handleInput(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.store.State().Todos)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.New):
		m.adding = true
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.selected(); ok {
			m.call("toggle", id)
		}

	case key.Matches(msg, m.keys.Remove):
		if id, ok := m.selected(); ok {
			m.call("remove", id)
		}

	case key.Matches(msg, m.keys.ClearDone):
		m.call("clear_done")

	case key.Matches(msg, m.keys.Import):
		m.call("import")
		if m.status == "" {
			m.status = "importing..."
		}

	case key.Matches(msg, m.keys.Reset):
		m.call("reset")
	}

	m.clampCursor()
	return m, nil
}

func (m model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.call("add", m.input.Value())
		m.closeInput()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		m.closeInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) closeInput() {
	m.adding = false
	m.input.Reset()
	m.input.Blur()
}

func (m *model) call(action string, payload ...any) {
	if err := m.store.Actions().Call(action, payload...); err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
}

func (m model) selected() (int, bool) {
	todos := m.store.State().Todos
	if m.cursor < 0 || m.cursor >= len(todos) {
		return 0, false
	}
	return todos[m.cursor].ID, true
}

func (m *model) clampCursor() {
	n := len(m.store.State().Todos)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View implements tea.Model.
func (m model) View() string {
	state := m.store.State()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Todos (%d left)", state.remaining())))
	b.WriteString("\n\n")

	if len(state.Todos) == 0 {
		b.WriteString(helpStyle.Render("  nothing yet"))
		b.WriteString("\n")
	}
	for i, t := range state.Todos {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		check, title := "[ ]", t.Title
		if t.Done {
			check, title = "[x]", doneStyle.Render(t.Title)
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, check, title)
	}

	if m.adding {
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpLine()))
	b.WriteString("\n")
	return b.String()
}

func (m model) helpLine() string {
	bindings := m.keys.help()
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func waitForFailure(failures <-chan error) tea.Cmd {
	if failures == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-failures
		if !ok {
			return nil
		}
		return failureMsg{err: err}
	}
}

// runUI starts the Bubble Tea program and re-renders it after every commit.
func runUI(s *store.Store[State], failures <-chan error) error {
	p := tea.NewProgram(newModel(s, failures), tea.WithAltScreen())

	// Synchronous actions commit inside Update, so Send must not block it.
	unsubscribe := s.Subscribe(store.Func(func() {
		go p.Send(changedMsg{})
	}))
	defer unsubscribe()

	_, err := p.Run()
	return err
}
