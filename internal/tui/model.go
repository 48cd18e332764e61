// Package tui provides the setup wizard using Bubble Tea. It walks through
// the API keys one provider at a time and finishes with the default model.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buker/lmci/internal/provider"
	"github.com/buker/lmci/internal/tui/shared"
)

// State is the phase of the wizard.
type State int

const (
	StateKeys      State = iota // Collecting API keys
	StateModel                  // Choosing the default model
	StateDone                   // Finished; Result is ready
	StateCancelled              // Left with Esc or Ctrl+C
)

// Result is what the wizard collected. Keys only holds settings the user
// changed: a new value, or "" for a saved key the user removed.
type Result struct {
	Keys     map[string]string
	Provider string
	Model    string
}

// keyStep is one API key prompt.
type keyStep struct {
	name    string // config key, e.g. OPENAI_API_KEY
	label   string
	saved   string
	value   string
	removed bool
	input   textinput.Model
}

// Model is the Bubble Tea model of the setup wizard.
type Model struct {
	state  State
	keys   shared.KeyMap
	steps  []*keyStep
	cur    int
	model  textinput.Model
	errMsg string
	width  int

	result Result
}

// Options seed the wizard with the current configuration.
type Options struct {
	KeyNames     []string          // key settings to prompt for, in order
	Saved        map[string]string // current key values
	DefaultModel string            // current default model
}

var keyLabels = map[string]string{
	"GROQ_API_KEY":       "Groq",
	"OPENAI_API_KEY":     "OpenAI",
	"ANTHROPIC_API_KEY":  "Anthropic",
	"CEREBRAS_API_KEY":   "Cerebras",
	"OPENROUTER_API_KEY": "OpenRouter",
	"SERPER_API_KEY":     "Serper",
}

// NewModel creates a wizard positioned on the first key.
func NewModel(opts Options) *Model {
	m := &Model{
		state: StateKeys,
		keys:  shared.DefaultKeyMap(),
		width: shared.DividerWidth,
	}

	for _, name := range opts.KeyNames {
		label, ok := keyLabels[name]
		if !ok {
			label = strings.TrimSuffix(name, "_API_KEY")
		}
		in := textinput.New()
		in.Prompt = "› "
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
		in.Width = 48
		saved := opts.Saved[name]
		if saved != "" {
			in.Placeholder = "saved " + maskKey(saved)
		} else {
			in.Placeholder = "not set"
		}
		m.steps = append(m.steps, &keyStep{name: name, label: label, saved: saved, input: in})
	}

	m.model = textinput.New()
	m.model.Prompt = "› "
	m.model.Width = 48
	m.model.Placeholder = opts.DefaultModel
	m.model.ShowSuggestions = true
	m.model.SetSuggestions(provider.AllModels())

	if len(m.steps) == 0 {
		m.state = StateModel
		m.model.Focus()
	} else {
		m.steps[0].input.Focus()
	}
	return m
}

// Init starts the cursor blinking.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = min(msg.Width, shared.DividerWidth)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.state = StateCancelled
			return m, tea.Quit
		}
		switch m.state {
		case StateKeys:
			return m.updateKey(msg)
		case StateModel:
			return m.updateModel(msg)
		}
	}
	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := m.steps[m.cur]

	switch {
	case key.Matches(msg, m.keys.Next):
		step.value = strings.TrimSpace(step.input.Value())
		if step.value != "" {
			step.removed = false
		}
		return m, m.focus(m.cur + 1)

	case key.Matches(msg, m.keys.Prev):
		return m, m.focus(m.cur - 1)

	case key.Matches(msg, m.keys.Reveal):
		if step.input.EchoMode == textinput.EchoPassword {
			step.input.EchoMode = textinput.EchoNormal
		} else {
			step.input.EchoMode = textinput.EchoPassword
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if step.saved != "" {
			step.removed = !step.removed
			step.input.SetValue("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	step.input, cmd = step.input.Update(msg)
	return m, cmd
}

func (m *Model) updateModel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Next):
		name := strings.TrimSpace(m.model.Value())
		if name == "" {
			// Keep the current default.
			m.finish("", "")
			return m, tea.Quit
		}
		info, model, err := provider.Resolve(name)
		if err != nil {
			m.errMsg = fmt.Sprintf("Model '%s' not found. Please try again.", name)
			return m, nil
		}
		m.finish(info.Name, model)
		return m, tea.Quit

	case key.Matches(msg, m.keys.Prev):
		return m, m.focus(len(m.steps) - 1)
	}

	m.errMsg = ""
	var cmd tea.Cmd
	m.model, cmd = m.model.Update(msg)
	return m, cmd
}

// focus moves to key step i, or to the model step past the last key.
func (m *Model) focus(i int) tea.Cmd {
	if i < 0 {
		return nil
	}
	if m.state == StateKeys {
		m.steps[m.cur].input.Blur()
	} else {
		m.model.Blur()
	}

	if i >= len(m.steps) {
		m.state = StateModel
		return m.model.Focus()
	}
	m.state = StateKeys
	m.cur = i
	return m.steps[i].input.Focus()
}

func (m *Model) finish(providerName, model string) {
	keys := make(map[string]string)
	for _, s := range m.steps {
		switch {
		case s.value != "" && s.value != s.saved:
			keys[s.name] = s.value
		case s.removed && s.saved != "":
			keys[s.name] = ""
		}
	}
	m.result = Result{Keys: keys, Provider: providerName, Model: model}
	m.state = StateDone
}

// View renders the wizard.
func (m *Model) View() string {
	if m.state == StateDone || m.state == StateCancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(shared.TitleStyle.Render("lmci setup") + "\n")
	b.WriteString(shared.RenderDivider(m.width) + "\n\n")

	for i, s := range m.steps {
		indicator := shared.StatusIndicatorPending
		switch {
		case s.removed:
			indicator = shared.StatusIndicatorSkipped
		case s.value != "" || s.saved != "":
			indicator = shared.StatusIndicatorDone
		}
		line := fmt.Sprintf("%s %s", indicator, s.label)
		if m.state == StateKeys && i == m.cur {
			b.WriteString(shared.SelectedStyle.Render(shared.SelectionChar+" "+line) + "\n")
		} else {
			b.WriteString("  " + shared.DimStyle.Render(line) + "\n")
		}
	}
	b.WriteString("\n")

	var help string
	switch m.state {
	case StateKeys:
		s := m.steps[m.cur]
		b.WriteString(shared.LabelStyle.Render(fmt.Sprintf("%s API key (%d/%d)", s.label, m.cur+1, len(m.steps))) + "\n")
		b.WriteString(s.input.View() + "\n")
		if s.removed {
			b.WriteString(shared.HelpStyle.Render("The saved key will be removed.") + "\n")
		}
		help = shared.SetupKeyHelp(s.saved != "")
	case StateModel:
		b.WriteString(shared.LabelStyle.Render("Default model") + "\n")
		b.WriteString(m.model.View() + "\n")
		if m.errMsg != "" {
			b.WriteString(shared.ErrorStyle.Render(m.errMsg) + "\n")
		}
		help = shared.SetupModelHelp()
	}

	b.WriteString("\n" + shared.HelpDescStyle.Render(help))
	return shared.BoxStyle.Render(b.String()) + "\n"
}

// State returns the current phase.
func (m *Model) State() State {
	return m.state
}

// Result returns what was collected once the wizard is done.
func (m *Model) Result() Result {
	return m.result
}

// maskKey hides all but the last four characters of a secret.
func maskKey(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("•", len(r))
	}
	return strings.Repeat("•", 4) + string(r[len(r)-4:])
}
