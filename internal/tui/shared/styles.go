// Package shared provides the colors, styles and key bindings used by both
// the chat REPL and the setup wizard.
package shared

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color definitions
var (
	ColorError  = lipgloss.Color("#FF5555") // Red - errors
	ColorWarn   = lipgloss.Color("#FFAA00") // Yellow/Orange - help, warnings
	ColorGreen  = lipgloss.Color("#55FF55") // Green - model names, success
	ColorInfo   = lipgloss.Color("#5FD7FF") // Cyan - informational messages
	ColorBorder = lipgloss.Color("#444444") // Border color
	ColorDimmed = lipgloss.Color("#666666") // Dimmed text
	ColorAccent = lipgloss.Color("#7B68EE") // Accent color (medium slate blue)
)

// Style definitions
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	// Chat transcript styles
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	ModelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorWarn)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	// Status indicator styles
	StatusRunningStyle = lipgloss.NewStyle().
				Foreground(ColorWarn)

	StatusDoneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	// Wizard styles
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	LabelStyle = lipgloss.NewStyle().
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)
)

// Status indicators
const (
	StatusIndicatorPending = "○"
	StatusIndicatorDone    = "✓"
	StatusIndicatorSkipped = "–"

	SelectionChar = "▶"
)

// DividerWidth is the width of the separator printed around each turn.
const DividerWidth = 70

// RenderDivider creates a horizontal divider of the specified width.
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return DividerStyle.Render(strings.Repeat("–", width))
}
