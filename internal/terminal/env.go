// Package terminal is the output surface of the chat client: raw text,
// rendered markdown and a transient status line on one terminal stream.
package terminal

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	// DefaultWidth is used when the width cannot be detected.
	DefaultWidth = 80
	// MinWidth is the narrowest width markdown is wrapped to.
	MinWidth = 40
)

type fder interface {
	Fd() uintptr
}

// IsTerminal reports whether w is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of the terminal behind w.
func Width(w io.Writer) int {
	f, ok := w.(fder)
	if !ok {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return max(width, MinWidth)
}

// ColorsEnabled reports whether styled output should be written to w.
// NO_COLOR disables colors, FORCE_COLOR enables them on non-terminals.
func ColorsEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return IsTerminal(w)
}

// ColorProfile returns the termenv profile to use for w.
func ColorProfile(w io.Writer) termenv.Profile {
	if !ColorsEnabled(w) {
		return termenv.Ascii
	}
	if f, ok := w.(*os.File); ok && IsTerminal(f) {
		return termenv.NewOutput(f).EnvColorProfile()
	}
	return termenv.ANSI256
}
