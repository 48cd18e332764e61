// Package render turns a stream of text fragments into terminal output.
//
// Plain prose is written as soon as it arrives. Markdown that needs context
// (headers, lists, tables, fenced code) is buffered until it can be drawn
// without half-formed markup, and every fenced code block is handed to the
// markdown renderer in one piece. Independently of those display decisions,
// the renderer returns the exact concatenation of every fragment it received.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// FenceMarker opens and closes a fenced code block.
const FenceMarker = "```"

// DefaultFlushThreshold is the pending-buffer size after which structured
// prose is flushed even without a paragraph boundary.
const DefaultFlushThreshold = 2048

// CodeStatusText is shown through the StatusIndicator while a code block streams.
const CodeStatusText = "generating code..."

var fence = []byte(FenceMarker)

// Mode is the position of the stream relative to an open code fence.
type Mode int

const (
	ModeProse     Mode = iota // outside any fence
	ModeCodeBlock             // inside an opened, not yet closed fence
)

func (m Mode) String() string {
	switch m {
	case ModeProse:
		return "prose"
	case ModeCodeBlock:
		return "code"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Source yields the fragments of one response. Recv returns io.EOF once the
// response is complete; any other error is a source failure.
type Source interface {
	Recv() (string, error)
}

// Surface is where rendered output goes.
type Surface interface {
	// WriteRaw writes text as-is.
	WriteRaw(text string) error
	// RenderMarkdown draws a complete markdown document.
	RenderMarkdown(md string) error
}

// StatusIndicator displays transient status text. It is optional.
type StatusIndicator interface {
	ShowStatus(text string)
	ClearStatus()
}

// PartialResponseError is returned when the source fails mid-stream.
// Partial holds everything received before the failure.
type PartialResponseError struct {
	Partial string
	Err     error
}

func (e *PartialResponseError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *PartialResponseError) Unwrap() error {
	return e.Err
}

// Renderer classifies fragments and flushes them to a Surface.
// A Renderer holds no per-response state and may be reused for many turns,
// one at a time.
type Renderer struct {
	surface   Surface
	status    StatusIndicator
	threshold int
	logger    *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStatus sets the indicator shown while a code block is being generated.
func WithStatus(s StatusIndicator) Option {
	return func(r *Renderer) {
		r.status = s
	}
}

// WithFlushThreshold overrides DefaultFlushThreshold. Values below 1 are ignored.
func WithFlushThreshold(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithLogger sets the logger used for render diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Renderer writing to surface.
func New(surface Surface, opts ...Option) *Renderer {
	r := &Renderer{
		surface:   surface,
		threshold: DefaultFlushThreshold,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render drains src, drawing its fragments as they arrive, and returns the
// full response text.
//
// When ctx is cancelled Render stops reading, flushes what it holds and
// returns the text received so far with a nil error. When src fails, the
// returned error is a *PartialResponseError carrying the same text.
func (r *Renderer) Render(ctx context.Context, src Source) (string, error) {
	t := &turn{r: r, lineStart: true}

	for {
		if ctx.Err() != nil {
			t.finish()
			r.logger.Debug("render cancelled", "bytes", t.full.Len())
			return t.full.String(), nil
		}

		frag, err := src.Recv()
		t.feed(frag)
		if err == nil {
			continue
		}

		t.finish()
		if errors.Is(err, io.EOF) {
			return t.full.String(), nil
		}
		if ctx.Err() != nil {
			r.logger.Debug("render cancelled", "bytes", t.full.Len(), "error", err)
			return t.full.String(), nil
		}
		return t.full.String(), &PartialResponseError{Partial: t.full.String(), Err: err}
	}
}

// turn holds the state of one response.
type turn struct {
	r *Renderer

	mode    Mode
	pending []byte
	full    strings.Builder

	// scanned is how far a CodeBlock pending buffer has been searched for
	// its closing fence.
	scanned int
	// lineStart reports whether the next pending byte begins a source line.
	lineStart bool
	statusOn  bool
}

func (t *turn) feed(frag string) {
	if frag == "" {
		return
	}
	t.full.WriteString(frag)
	t.pending = append(t.pending, frag...)

	for t.advance() {
	}
	if t.mode == ModeProse {
		t.flushProse(false)
	}
}

// advance performs at most one mode transition and reports whether it did.
func (t *turn) advance() bool {
	if t.mode == ModeProse {
		i := bytes.Index(t.pending, fence)
		if i < 0 {
			return false
		}
		if i > 0 {
			t.emitProse(t.pending[:i])
		}
		t.pending = t.pending[i:]
		t.mode = ModeCodeBlock
		t.scanned = len(FenceMarker)
		t.showStatus()
		return true
	}

	end := closingFence(t.pending, t.scanned)
	if end < 0 {
		// A marker may still complete across the last two bytes.
		t.scanned = max(len(FenceMarker), len(t.pending)-len(FenceMarker)+1)
		return false
	}
	t.emit(normalizeFence(t.pending[:end]), true)
	t.pending = t.pending[end:]
	t.mode = ModeProse
	t.scanned = 0
	t.clearStatus()
	return true
}

// flushProse applies the prose flush policy to the pending buffer.
// With final set, everything pending is flushed.
func (t *turn) flushProse(final bool) {
	text := t.pending
	if !final {
		// One or two trailing backticks may be the start of a fence.
		text = text[:len(text)-trailingBackticks(text)]
	}
	if len(text) == 0 {
		return
	}

	if !hasStructure(text, t.lineStart) {
		t.emit(text, false)
		t.pending = t.pending[len(text):]
		return
	}

	cut := len(text)
	if !final {
		cut = paragraphBoundary(text)
		if cut < 0 && len(t.pending) > t.r.threshold {
			cut = bytes.LastIndexByte(text, '\n') + 1
			if cut == 0 {
				cut = len(text)
			}
			t.r.logger.Debug("flushing long prose buffer", "bytes", len(t.pending))
		}
	}
	if cut <= 0 {
		return
	}
	t.emit(text[:cut], true)
	t.pending = t.pending[cut:]
}

// emitProse flushes prose that precedes an opening fence. The fence ends
// the paragraph, so no boundary is needed.
func (t *turn) emitProse(text []byte) {
	t.emit(text, hasStructure(text, t.lineStart))
}

// finish flushes everything still pending at the end of the stream.
func (t *turn) finish() {
	if t.mode == ModeCodeBlock {
		block := append([]byte(nil), t.pending...)
		if !bytes.HasSuffix(block, []byte("\n")) {
			block = append(block, '\n')
		}
		block = append(block, fence...)
		t.emit(normalizeFence(block), true)
		t.pending = nil
		t.mode = ModeProse
	} else {
		t.flushProse(true)
	}
	t.clearStatus()
}

func (t *turn) emit(text []byte, markdown bool) {
	if len(text) == 0 {
		return
	}
	s := string(text)
	t.lineStart = text[len(text)-1] == '\n'

	if !markdown {
		if err := t.r.surface.WriteRaw(s); err != nil {
			t.r.logger.Warn("write failed", "error", err)
		}
		return
	}

	if err := t.r.surface.RenderMarkdown(s); err != nil {
		t.r.logger.Warn("markdown render failed", "error", err, "bytes", len(s))
		if werr := t.r.surface.WriteRaw(fmt.Sprintf("\n[render error: %v]\n", err)); werr != nil {
			t.r.logger.Warn("write failed", "error", werr)
			return
		}
		if werr := t.r.surface.WriteRaw(s); werr != nil {
			t.r.logger.Warn("write failed", "error", werr)
		}
	}
}

func (t *turn) showStatus() {
	if t.r.status == nil || t.statusOn {
		return
	}
	t.r.status.ShowStatus(CodeStatusText)
	t.statusOn = true
}

func (t *turn) clearStatus() {
	if t.r.status == nil || !t.statusOn {
		return
	}
	t.r.status.ClearStatus()
	t.statusOn = false
}
