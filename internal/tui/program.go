package tui

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the user leaves the wizard without saving.
var ErrCancelled = errors.New("setup cancelled")

// Program wraps a Bubble Tea program running the setup wizard.
type Program struct {
	program *tea.Program
	model   *Model
}

// NewProgram creates a wizard program. A nil in or out uses the terminal.
func NewProgram(opts Options, in io.Reader, out io.Writer) *Program {
	model := NewModel(opts)
	var teaOpts []tea.ProgramOption
	if in != nil {
		teaOpts = append(teaOpts, tea.WithInput(in))
	}
	if out != nil {
		teaOpts = append(teaOpts, tea.WithOutput(out))
	}
	return &Program{
		program: tea.NewProgram(model, teaOpts...),
		model:   model,
	}
}

// Run blocks until the wizard ends and returns what it collected.
func (p *Program) Run() (Result, error) {
	if _, err := p.program.Run(); err != nil {
		return Result{}, err
	}
	if p.model.State() != StateDone {
		return Result{}, ErrCancelled
	}
	return p.model.Result(), nil
}

// RunSetup runs the wizard on the terminal.
func RunSetup(opts Options) (Result, error) {
	return NewProgram(opts, nil, nil).Run()
}
