package dialog

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// Terminal answers prompts by running a dialog on the terminal.
type Terminal struct {
	in  io.Reader
	out io.Writer
	log logrus.FieldLogger
}

// NewTerminal returns a prompter reading keys from in and drawing on out.
func NewTerminal(in io.Reader, out io.Writer, log logrus.FieldLogger) *Terminal {
	return &Terminal{in: in, out: out, log: log}
}

func (t *Terminal) Prompt(message, defaultValue string) (string, bool) {
	m := New()
	cmd := m.ActivateInput(message, defaultValue)
	res := t.run(m, cmd)
	return res.value, res.ok
}

func (t *Terminal) Confirm(message string) bool {
	m := New()
	m.Activate(message)
	return t.run(m, nil).ok
}

func (t *Terminal) Alert(message string) {
	m := New()
	m.ActivateAlert(message)
	t.run(m, nil)
}

func (t *Terminal) run(m Model, init tea.Cmd) result {
	p := tea.NewProgram(&program{dialog: m, init: init}, tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		t.log.WithError(err).Warn("dialog failed")
		return result{}
	}
	return final.(*program).res
}

type result struct {
	value string
	ok    bool
}

// program hosts one dialog and quits once it is answered.
type program struct {
	dialog Model
	init   tea.Cmd
	res    result
}

func (p *program) Init() tea.Cmd { return p.init }

func (p *program) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ConfirmedMsg:
		p.res = result{value: msg.Value, ok: true}
		return p, tea.Quit
	case CancelledMsg:
		return p, tea.Quit
	}
	var cmd tea.Cmd
	p.dialog, cmd = p.dialog.Update(msg)
	return p, cmd
}

func (p *program) View() string { return p.dialog.View() }

// Assume answers every question without asking. Confirmations and prompts
// get answer; prompts keep their default value. Alerts are printed to out.
type Assume struct {
	answer bool
	out    io.Writer
}

// NewAssume returns a non-interactive prompter.
func NewAssume(answer bool, out io.Writer) *Assume {
	return &Assume{answer: answer, out: out}
}

func (a *Assume) Prompt(_, defaultValue string) (string, bool) {
	return defaultValue, a.answer
}

func (a *Assume) Confirm(string) bool { return a.answer }

func (a *Assume) Alert(message string) {
	fmt.Fprintln(a.out, message)
}
