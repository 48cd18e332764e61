package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/buker/lmci/internal/chat"
	"github.com/buker/lmci/internal/config"
	"github.com/buker/lmci/internal/logging"
	"github.com/buker/lmci/internal/provider"
	"github.com/buker/lmci/internal/render"
	"github.com/buker/lmci/internal/store"
	"github.com/buker/lmci/internal/tui/shared"
)

const promptText = "You: "

func runChat(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	debug, _ := cmd.Flags().GetBool("debug")
	logger := logging.Setup(cfg.Log.Level, debug)
	out := cmd.OutOrStdout()

	info, model, err := startingModel(cmd, cfg)
	if err != nil {
		return err
	}

	keys := config.Keys()
	if len(providerKeys(keys)) == 0 && info.NeedsKey() {
		fmt.Fprintln(out, shared.ErrorStyle.Render("API keys not found. Please run 'lmci setup' first."))
		return nil
	}

	opts := providerOptions(cfg, keys)
	opts.Logger = logger
	registry := provider.NewRegistry(opts)

	term, err := newTerminal(cfg, out)
	if err != nil {
		return err
	}
	renderer := newRenderer(cfg, term, render.WithLogger(logger))

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	historyPath := filepath.Join(config.Dir(), "history")
	loadHistory(line, historyPath, logger)
	defer saveHistory(line, historyPath, logger)

	words := completionWords()
	line.SetCompleter(prefixCompleter(words))

	chatOpts := []chat.Option{
		chat.WithLogger(logger),
		chat.WithWidth(renderWidth(cfg, out)),
		chat.WithPrompter(&linePrompter{line: line, restore: words}),
	}
	noStore, _ := cmd.Flags().GetBool("no-store")
	if cfg.Store.Enabled && !noStore {
		st, err := store.Open(storePath(cfg))
		if err != nil {
			logger.Warn("transcript store unavailable", "error", err)
		} else {
			defer st.Close()
			chatOpts = append(chatOpts, chat.WithRecorder(st))
		}
	}

	session := chat.NewSession(info.Name, model)
	c := chat.New(session, registry, renderer, term, chatOpts...)
	logger.Debug("chat started", "session", session.ID, "provider", info.Name, "model", model)

	r := &repl{chat: c, in: line, out: term, interrupts: true}
	r.welcome()
	return r.run(commandContext(cmd))
}

// commandContext returns the command's context, which is unset when a
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// lineReader is the part of liner.State the loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// repl reads lines until the user quits.
type repl struct {
	chat       *chat.Chat
	in         lineReader
	out        io.Writer
	interrupts bool // Ctrl+C cancels the turn in progress
}

func (r *repl) welcome() {
	s := r.chat.Session()
	fmt.Fprintln(r.out, shared.InfoStyle.Render("Welcome to the Multi-Model AI Chat CLI!"))
	fmt.Fprintln(r.out, shared.InfoStyle.Render(fmt.Sprintf("Current model: %s (Provider: %s)", s.Model, s.Provider)))
	chat.PrintHelp(r.out)
	fmt.Fprintf(r.out, "\n%s\n", shared.RenderDivider(shared.DividerWidth))
}

func (r *repl) run(ctx context.Context) error {
	for {
		input, err := r.in.Prompt(promptText)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out, shared.InfoStyle.Render("\nGoodbye!"))
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(input) != "" {
			r.in.AppendHistory(input)
		}

		quit, err := r.handle(ctx, input)
		if err != nil {
			printError(r.out, err)
		}
		if quit {
			return nil
		}
	}
}

// handle runs one line. While it runs, Ctrl+C cancels the turn instead of
// ending the program.
func (r *repl) handle(ctx context.Context, input string) (bool, error) {
	if r.interrupts {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}
	quit, err := r.chat.Handle(ctx, input)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return quit, err
}

// linePrompter asks follow-up questions on the chat prompt with its own
// completions.
type linePrompter struct {
	line    *liner.State
	restore []string
}

func (p *linePrompter) Prompt(label string, completions []string) (string, error) {
	p.line.SetCompleter(prefixCompleter(completions))
	defer p.line.SetCompleter(prefixCompleter(p.restore))
	return p.line.Prompt(label)
}

// completionWords are the chat prompt completions: the commands, and
// "change model" with every catalog model.
func completionWords() []string {
	words := chat.CommandNames()
	for _, m := range provider.AllModels() {
		words = append(words, "change model "+m)
	}
	return words
}

func prefixCompleter(words []string) liner.Completer {
	return func(line string) []string {
		lower := strings.ToLower(line)
		var out []string
		for _, w := range words {
			if strings.HasPrefix(strings.ToLower(w), lower) {
				out = append(out, w)
			}
		}
		return out
	}
}

func loadHistory(line *liner.State, path string, logger *slog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("read history failed", "path", path, "error", err)
		}
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		logger.Warn("read history failed", "path", path, "error", err)
	}
}

func saveHistory(line *liner.State, path string, logger *slog.Logger) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger.Warn("write history failed", "path", path, "error", err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		logger.Warn("write history failed", "path", path, "error", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		logger.Warn("write history failed", "path", path, "error", err)
	}
}
