package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/muesli/reflow/truncate"

	"github.com/buker/lmci/internal/provider"
	"github.com/buker/lmci/internal/render"
	"github.com/buker/lmci/internal/store"
	"github.com/buker/lmci/internal/tui/shared"
)

// ErrNoResponse reports a turn that produced no text.
var ErrNoResponse = errors.New("no response")

// Providers hands out providers by name.
type Providers interface {
	Get(name string) (provider.Provider, error)
}

// Recorder persists turns. *store.Store satisfies it.
type Recorder interface {
	SaveSession(ctx context.Context, sess store.Session) error
	AppendMessage(ctx context.Context, sessionID string, msg store.Message) error
	ClearMessages(ctx context.Context, sessionID string) error
}

// Prompter asks the user for a line of input, offering completions.
type Prompter interface {
	Prompt(label string, completions []string) (string, error)
}

// Chat drives one conversation.
type Chat struct {
	session   *Session
	providers Providers
	renderer  *render.Renderer
	out       io.Writer

	recorder Recorder
	prompter Prompter
	counter  *TokenCounter
	width    int
	logger   *slog.Logger

	saved bool // session row exists in the recorder
}

// Option configures a Chat.
type Option func(*Chat)

// WithRecorder stores every turn.
func WithRecorder(r Recorder) Option {
	return func(c *Chat) { c.recorder = r }
}

// WithPrompter enables the interactive model picker.
func WithPrompter(p Prompter) Option {
	return func(c *Chat) { c.prompter = p }
}

// WithTokenCounter replaces the default tiktoken counter.
func WithTokenCounter(tc *TokenCounter) Option {
	return func(c *Chat) { c.counter = tc }
}

// WithWidth sets the width used to truncate history lines.
func WithWidth(w int) Option {
	return func(c *Chat) { c.width = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chat) { c.logger = l }
}

// New returns a Chat that renders replies with renderer and prints
// everything else to out.
func New(session *Session, providers Providers, renderer *render.Renderer, out io.Writer, opts ...Option) *Chat {
	c := &Chat{
		session:   session,
		providers: providers,
		renderer:  renderer,
		out:       out,
		width:     shared.DividerWidth,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.counter == nil {
		c.counter = NewTokenCounter(c.logger)
	}
	return c
}

// Session returns the conversation state.
func (c *Chat) Session() *Session {
	return c.session
}

// Handle processes one line of input: a command or a message. It reports
// whether the user asked to leave.
func (c *Chat) Handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	fmt.Fprintf(c.out, "\n%s\n", shared.RenderDivider(shared.DividerWidth))

	cmd, arg := ParseCommand(line)
	switch cmd {
	case CmdQuit:
		fmt.Fprintln(c.out, shared.InfoStyle.Render("\nGoodbye!"))
		return true, nil
	case CmdHelp:
		PrintHelp(c.out)
	case CmdChangeModel:
		return false, c.changeModel(ctx, arg)
	case CmdTokenCount:
		n := c.counter.CountTurns(c.session.Turns)
		fmt.Fprintln(c.out, shared.InfoStyle.Render(fmt.Sprintf("Current conversation token count: %d", n)))
	case CmdClearHistory:
		return false, c.clearHistory(ctx)
	case CmdSave:
		return false, c.save(arg)
	case CmdHistory:
		c.printHistory()
	default:
		return false, c.Send(ctx, line)
	}
	return false, nil
}

// Send adds a user turn, streams the reply and records both. A reply cut
// short by cancellation or a stream failure is kept as a partial turn; when
// nothing arrived the user turn is withdrawn.
func (c *Chat) Send(ctx context.Context, input string) error {
	p, err := c.providers.Get(c.session.Provider)
	if err != nil {
		return err
	}

	c.session.appendUser(input)
	model := c.session.Model
	c.logger.Debug("sending turn", "provider", p.Name(), "model", model, "turns", len(c.session.Turns))

	stream, err := p.Stream(ctx, model, c.session.Messages())
	if err != nil {
		c.session.dropLast()
		return err
	}
	defer stream.Close()

	fmt.Fprintf(c.out, "\n%s\n", shared.ModelStyle.Render(model+":"))
	started := time.Now()
	full, err := c.renderer.Render(ctx, stream)
	interrupted := ctx.Err() != nil

	if full == "" {
		c.session.dropLast()
		if err == nil && !interrupted {
			err = fmt.Errorf("%w from %s", ErrNoResponse, model)
		}
		c.endTurn(interrupted)
		return err
	}

	partial := err != nil || interrupted
	c.session.appendAssistant(full, partial)
	c.logger.Debug("turn complete", "model", model, "bytes", len(full), "partial", partial, "elapsed", time.Since(started))
	c.record(ctx, c.session.Turns[len(c.session.Turns)-2:])
	c.endTurn(interrupted)
	return err
}

func (c *Chat) endTurn(interrupted bool) {
	if interrupted {
		fmt.Fprintln(c.out, shared.DimStyle.Render("\n[interrupted]"))
	}
	fmt.Fprintf(c.out, "\n%s\n", shared.RenderDivider(shared.DividerWidth))
}

// record stores turns; failures are logged and never end the chat.
func (c *Chat) record(ctx context.Context, turns []Turn) {
	if c.recorder == nil {
		return
	}
	// Recording must finish even when the turn was interrupted.
	ctx = context.WithoutCancel(ctx)

	if !c.saved {
		if err := c.recorder.SaveSession(ctx, c.storeSession()); err != nil {
			c.logger.Warn("save session failed", "session", c.session.ID, "error", err)
			return
		}
		c.saved = true
	}
	for _, t := range turns {
		msg := store.Message{
			Role:     string(t.Role),
			Content:  t.Content,
			Provider: t.Provider,
			Model:    t.Model,
			Partial:  t.Partial,
		}
		if err := c.recorder.AppendMessage(ctx, c.session.ID, msg); err != nil {
			c.logger.Warn("record message failed", "session", c.session.ID, "error", err)
			return
		}
	}
}

func (c *Chat) storeSession() store.Session {
	return store.Session{
		ID:        c.session.ID,
		Provider:  c.session.Provider,
		Model:     c.session.Model,
		CreatedAt: c.session.CreatedAt,
	}
}

func (c *Chat) changeModel(ctx context.Context, name string) error {
	if name == "" {
		PrintModels(c.out)
		if c.prompter == nil {
			return errors.New("no model given: use 'change model <name>'")
		}
		var err error
		name, err = c.prompter.Prompt("Enter the name of the new model: ", provider.AllModels())
		if err != nil {
			return err
		}
		name = strings.TrimSpace(name)
	}

	info, model, err := provider.Resolve(name)
	if err != nil {
		fmt.Fprintln(c.out, shared.ErrorStyle.Render(fmt.Sprintf("Model '%s' not found. Please try again.", name)))
		return nil
	}
	c.session.Provider = info.Name
	c.session.Model = model
	fmt.Fprintln(c.out, shared.InfoStyle.Render(fmt.Sprintf("Model changed to: %s (Provider: %s)", model, info.Name)))

	if c.recorder != nil && c.saved {
		if err := c.recorder.SaveSession(context.WithoutCancel(ctx), c.storeSession()); err != nil {
			c.logger.Warn("update session failed", "session", c.session.ID, "error", err)
		}
	}
	return nil
}

func (c *Chat) clearHistory(ctx context.Context) error {
	c.session.Clear()
	if c.recorder != nil && c.saved {
		if err := c.recorder.ClearMessages(ctx, c.session.ID); err != nil {
			c.logger.Warn("clear stored messages failed", "session", c.session.ID, "error", err)
		}
	}
	fmt.Fprintln(c.out, shared.InfoStyle.Render("Conversation history cleared."))
	return nil
}

func (c *Chat) save(path string) error {
	if len(c.session.Turns) == 0 {
		fmt.Fprintln(c.out, shared.DimStyle.Render("Nothing to save yet."))
		return nil
	}
	if path == "" {
		path = "lmci-" + c.session.ID + ".md"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if err := Export(f, c.session, time.Now()); err != nil {
		f.Close()
		return fmt.Errorf("save conversation: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	fmt.Fprintln(c.out, shared.SuccessStyle.Render("Conversation saved to "+path))
	return nil
}

func (c *Chat) printHistory() {
	if len(c.session.Turns) == 0 {
		fmt.Fprintln(c.out, shared.DimStyle.Render("No messages yet."))
		return
	}
	for _, t := range c.session.Turns {
		name, style := "You:", shared.PromptStyle
		if t.Role == provider.RoleAssistant {
			name, style = t.Model+":", shared.ModelStyle
		}
		text := strings.Join(strings.Fields(t.Content), " ")
		room := max(c.width-len(name)-1, 10)
		fmt.Fprintf(c.out, "%s %s\n", style.Render(name), truncate.StringWithTail(text, uint(room), "…"))
	}
}

// PrintHelp prints the command menu.
func PrintHelp(w io.Writer) {
	lines := []string{
		"Available commands:",
		"  'change model' - Switch to a different AI model",
		"  'token count' - Display token count for the conversation",
		"  'clear history' - Clear the conversation history",
		"  'save [file]' - Save the conversation as markdown",
		"  'history' - List the messages of this conversation",
		"  'quit' or 'exit' - End the conversation",
		"  'help' - Show menu options",
	}
	for _, l := range lines {
		fmt.Fprintln(w, shared.HelpStyle.Render(l))
	}
}

// PrintModels lists the catalog grouped by provider.
func PrintModels(w io.Writer) {
	fmt.Fprintln(w, shared.InfoStyle.Render("\nAvailable models:"))
	for _, info := range provider.Catalog() {
		fmt.Fprintln(w, shared.HelpStyle.Render(capitalize(info.Name)+":"))
		for _, m := range info.Models {
			fmt.Fprintln(w, shared.SuccessStyle.Render("  - "+m))
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
