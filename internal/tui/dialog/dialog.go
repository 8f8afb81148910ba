// Package dialog provides the terminal dialogs used for tag prompts,
// confirmations and alerts.
package dialog

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattsolo1/grove-core/tui/theme"
)

// --- Messages ---

// ConfirmedMsg is sent when the user accepts the dialog. Value carries the
// entered text for input dialogs.
type ConfirmedMsg struct {
	Value string
}

// CancelledMsg is sent when the user dismisses the dialog.
type CancelledMsg struct{}

// Kind selects how the dialog behaves.
type Kind int

const (
	KindConfirm Kind = iota
	KindInput
	KindAlert
)

// --- Model ---

// Model is a single modal dialog.
type Model struct {
	Active bool
	Prompt string
	Kind   Kind

	input textinput.Model
	keys  keyMap
}

// New creates an inactive dialog.
func New() Model {
	ti := textinput.New()
	ti.CharLimit = 100
	ti.Width = 40
	return Model{
		input: ti,
		keys:  defaultKeyMap,
	}
}

// Activate shows a yes/no question.
func (m *Model) Activate(prompt string) {
	m.Prompt = prompt
	m.Kind = KindConfirm
	m.Active = true
}

// ActivateInput shows a text prompt pre-filled with defaultValue.
func (m *Model) ActivateInput(prompt, defaultValue string) tea.Cmd {
	m.Prompt = prompt
	m.Kind = KindInput
	m.Active = true
	m.input.SetValue(defaultValue)
	m.input.CursorEnd()
	return m.input.Focus()
}

// ActivateAlert shows a message that only needs dismissing.
func (m *Model) ActivateAlert(message string) {
	m.Prompt = message
	m.Kind = KindAlert
	m.Active = true
}

// Value is the current text of an input dialog.
func (m Model) Value() string {
	return m.input.Value()
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.Active {
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.Kind == KindInput {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch m.Kind {
	case KindInput:
		switch {
		case key.Matches(keyMsg, m.keys.Submit):
			m.Active = false
			m.input.Blur()
			value := m.input.Value()
			return m, func() tea.Msg { return ConfirmedMsg{Value: value} }
		case key.Matches(keyMsg, m.keys.Dismiss):
			m.Active = false
			m.input.Blur()
			return m, func() tea.Msg { return CancelledMsg{} }
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case KindAlert:
		if key.Matches(keyMsg, m.keys.Submit) || key.Matches(keyMsg, m.keys.Dismiss) {
			m.Active = false
			return m, func() tea.Msg { return ConfirmedMsg{} }
		}

	default:
		switch {
		case key.Matches(keyMsg, m.keys.Confirm):
			m.Active = false
			return m, func() tea.Msg { return ConfirmedMsg{} }
		case key.Matches(keyMsg, m.keys.Cancel):
			m.Active = false
			return m, func() tea.Msg { return CancelledMsg{} }
		}
	}

	return m, nil
}

// --- View ---

func (m Model) View() string {
	if !m.Active {
		return ""
	}

	body := m.Prompt
	help := "(y/n)"
	switch m.Kind {
	case KindInput:
		body = lipgloss.JoinVertical(lipgloss.Left, m.Prompt, "", m.input.View())
		help = "(enter to save, esc to cancel)"
	case KindAlert:
		help = "(enter)"
	}

	dialogBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.DefaultTheme.Colors.Orange).
		Padding(1, 2).
		Render(body)

	helpText := lipgloss.NewStyle().
		Faint(true).
		Width(lipgloss.Width(dialogBox)).
		Align(lipgloss.Center).
		Render("\n" + help)

	return lipgloss.JoinVertical(lipgloss.Left, dialogBox, helpText)
}

// --- KeyMap ---

type keyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
	Submit  key.Binding
	Dismiss key.Binding
}

var defaultKeyMap = keyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}
