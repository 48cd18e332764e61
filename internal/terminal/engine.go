package terminal

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
	"pkt.systems/mdf"
)

// Engine names accepted by NewEngine.
const (
	EngineGlamour = "glamour"
	EngineMDF     = "mdf"
	EnginePlain   = "plain"
)

// Engines lists the available engine names.
var Engines = []string{EngineGlamour, EngineMDF, EnginePlain}

const codeStyle = "monokai"

// Engine converts a complete markdown document to terminal text.
type Engine interface {
	Render(md string) (string, error)
}

// EngineConfig selects and tunes an Engine.
type EngineConfig struct {
	Name    string          // glamour, mdf or plain
	Style   string          // glamour standard style or mdf theme; "auto" picks one
	Width   int             // wrap width; 0 means DefaultWidth
	Profile termenv.Profile // color profile of the destination
}

// NewEngine builds the engine named in cfg. Without color support every
// engine degrades to plain output.
func NewEngine(cfg EngineConfig) (Engine, error) {
	width := cfg.Width
	if width <= 0 {
		width = DefaultWidth
	}
	if cfg.Profile == termenv.Ascii && cfg.Name != EnginePlain {
		return &PlainEngine{Width: width}, nil
	}

	switch cfg.Name {
	case "", EngineGlamour:
		return NewGlamourEngine(cfg.Style, width, cfg.Profile)
	case EngineMDF:
		return NewMDFEngine(cfg.Style, width)
	case EnginePlain:
		return &PlainEngine{Width: width}, nil
	default:
		return nil, fmt.Errorf("unknown render engine %q (want one of %s)", cfg.Name, strings.Join(Engines, ", "))
	}
}

// GlamourEngine renders with glamour.
type GlamourEngine struct {
	r *glamour.TermRenderer
}

// NewGlamourEngine creates a glamour renderer. An empty or "auto" style
// follows the terminal background.
func NewGlamourEngine(style string, width int, profile termenv.Profile) (*GlamourEngine, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
		glamour.WithColorProfile(profile),
	}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}
	return &GlamourEngine{r: r}, nil
}

// Render implements Engine.
func (e *GlamourEngine) Render(md string) (string, error) {
	out, err := e.r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// MDFEngine renders prose with mdf and highlights code blocks with chroma.
type MDFEngine struct {
	theme mdf.Theme
	width int
}

// NewMDFEngine creates an mdf renderer using the named theme.
func NewMDFEngine(theme string, width int) (*MDFEngine, error) {
	t := mdf.DefaultTheme()
	if theme != "" && theme != "auto" {
		var ok bool
		if t, ok = mdf.ThemeByName(theme); !ok {
			return nil, fmt.Errorf("unknown mdf theme %q (want one of %s)", theme, strings.Join(mdf.AvailableThemes(), ", "))
		}
	}
	return &MDFEngine{theme: t, width: width}, nil
}

// Render implements Engine.
func (e *MDFEngine) Render(md string) (string, error) {
	if lang, code, ok := splitFence(md); ok {
		return highlightCode(lang, code)
	}

	var buf bytes.Buffer
	err := mdf.Render(mdf.RenderRequest{
		Reader: strings.NewReader(md),
		Writer: &buf,
		Width:  e.width,
		Theme:  e.theme,
	})
	if err != nil {
		return "", err
	}
	return ensureNewline(buf.String()), nil
}

// PlainEngine wraps prose and leaves markup untouched.
type PlainEngine struct {
	Width int
}

// Render implements Engine.
func (e *PlainEngine) Render(md string) (string, error) {
	if _, _, ok := splitFence(md); ok {
		return ensureNewline(md), nil
	}
	return ensureNewline(wordwrap.String(md, e.Width)), nil
}

// splitFence splits a single fenced code block into its info string and body.
func splitFence(md string) (lang, code string, ok bool) {
	if !strings.HasPrefix(md, "```") || !strings.HasSuffix(md, "```") || len(md) < 6 {
		return "", "", false
	}
	inner := md[3 : len(md)-3]
	nl := strings.IndexByte(inner, '\n')
	if nl < 0 {
		return "", "", false
	}
	return strings.TrimSpace(inner[:nl]), inner[nl+1:], true
}

func highlightCode(lang, code string) (string, error) {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, code, lang, "terminal256", codeStyle); err != nil {
		return "", fmt.Errorf("failed to highlight %s code: %w", lang, err)
	}
	return ensureNewline(buf.String()), nil
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
