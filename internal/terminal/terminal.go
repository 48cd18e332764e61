package terminal

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/buker/lmci/internal/tui/shared"
)

// Terminal writes chat output to a stream. It implements render.Surface and
// render.StatusIndicator, and io.Writer for surrounding chrome.
type Terminal struct {
	mu          sync.Mutex
	out         *termenv.Output
	engine      Engine
	interactive bool
	lineStart   bool

	spin        spinner.Spinner
	statusStyle lipgloss.Style
	status      *statusLine
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithInteractive overrides terminal detection. The status line is only
// drawn on interactive terminals.
func WithInteractive(v bool) Option {
	return func(t *Terminal) {
		t.interactive = v
	}
}

// WithSpinner sets the animation used by the status line.
func WithSpinner(s spinner.Spinner) Option {
	return func(t *Terminal) {
		t.spin = s
	}
}

// New creates a Terminal on w using engine for markdown.
func New(w io.Writer, engine Engine, opts ...Option) *Terminal {
	t := &Terminal{
		out:         termenv.NewOutput(w),
		engine:      engine,
		interactive: IsTerminal(w),
		lineStart:   true,
		spin:        spinner.Dot,
		statusStyle: shared.StatusRunningStyle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Write implements io.Writer.
func (t *Terminal) Write(p []byte) (int, error) {
	t.stopStatus()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.write(string(p))
}

// WriteRaw writes text without interpretation.
func (t *Terminal) WriteRaw(text string) error {
	_, err := t.Write([]byte(text))
	return err
}

// RenderMarkdown renders md with the engine, starting on a fresh line.
func (t *Terminal) RenderMarkdown(md string) error {
	rendered, err := t.engine.Render(md)
	if err != nil {
		return err
	}

	t.stopStatus()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.lineStart {
		if _, err := t.write("\n"); err != nil {
			return err
		}
	}
	_, err = t.write(rendered)
	return err
}

// EnsureNewline ends the current line if anything has been written on it.
func (t *Terminal) EnsureNewline() {
	t.stopStatus()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.lineStart {
		_, _ = t.write("\n")
	}
}

// ShowStatus draws an animated status line until ClearStatus or the next write.
func (t *Terminal) ShowStatus(text string) {
	if !t.interactive {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != nil {
		return
	}
	if !t.lineStart {
		_, _ = t.write("\n")
	}

	s := &statusLine{
		text: text,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	t.status = s
	t.drawStatus(s, 0)
	go t.animate(s)
}

// ClearStatus removes the status line.
func (t *Terminal) ClearStatus() {
	t.stopStatus()
}

type statusLine struct {
	text string
	stop chan struct{}
	done chan struct{}
}

func (t *Terminal) animate(s *statusLine) {
	defer close(s.done)

	fps := t.spin.FPS
	if fps <= 0 {
		fps = time.Second / 10
	}
	ticker := time.NewTicker(fps)
	defer ticker.Stop()

	for frame := 1; ; frame++ {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			t.drawStatus(s, frame)
			t.mu.Unlock()
		}
	}
}

// drawStatus must be called with t.mu held.
func (t *Terminal) drawStatus(s *statusLine, frame int) {
	glyph := ""
	if len(t.spin.Frames) > 0 {
		glyph = t.spin.Frames[frame%len(t.spin.Frames)] + " "
	}
	t.out.ClearLine()
	_, _ = io.WriteString(t.out, "\r"+t.statusStyle.Render(glyph+s.text))
}

// stopStatus ends the animation and erases the status line. It must be
// called without t.mu held.
func (t *Terminal) stopStatus() {
	t.mu.Lock()
	s := t.status
	t.status = nil
	t.mu.Unlock()
	if s == nil {
		return
	}

	close(s.stop)
	<-s.done

	t.mu.Lock()
	t.out.ClearLine()
	_, _ = io.WriteString(t.out, "\r")
	t.lineStart = true
	t.mu.Unlock()
}

// write must be called with t.mu held.
func (t *Terminal) write(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := io.WriteString(t.out, s)
	if n > 0 {
		t.lineStart = strings.HasSuffix(s[:n], "\n")
	}
	return n, err
}
