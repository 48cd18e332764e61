package shared

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the setup wizard.
type KeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Reveal key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "back"),
		),
		Reveal: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("^r", "show/hide"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("^x", "remove saved key"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("Esc", "cancel"),
		),
	}
}

// SetupKeyHelp returns help text for an API key step.
func SetupKeyHelp(hasSaved bool) string {
	if hasSaved {
		return " [Enter] keep/next  [S-Tab] back  [^r] show/hide  [^x] remove saved key  [Esc] cancel"
	}
	return " [Enter] next  [S-Tab] back  [^r] show/hide  [Esc] cancel"
}

// SetupModelHelp returns help text for the default model step.
func SetupModelHelp() string {
	return " [Tab] complete  [Enter] save  [S-Tab] back  [Esc] cancel"
}
