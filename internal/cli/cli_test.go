package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buker/lmci/internal/chat"
	"github.com/buker/lmci/internal/config"
	"github.com/buker/lmci/internal/provider"
	"github.com/buker/lmci/internal/render"
	"github.com/buker/lmci/internal/store"
	"github.com/buker/lmci/internal/terminal"
	"github.com/buker/lmci/internal/tui"
)

// useTempConfig points the configuration at an empty directory.
func useTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	t.Setenv("HOME", dir)
	t.Setenv("LMCI_HOME", dir)
	for _, name := range config.KeyNames {
		t.Setenv(name, "")
		t.Setenv("LMCI_"+name, "")
	}
	config.SetConfigFile("")
	config.Init()
	t.Cleanup(viper.Reset)
	return dir
}

// =============================================================================
// Command tree
// =============================================================================

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	want := []string{"setup", "models", "config", "sessions", "render", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCmd_HasChatFlags(t *testing.T) {
	for _, name := range []string{"config", "model", "provider", "engine", "debug"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag --%s", name)
		}
	}
	if rootCmd.Flags().Lookup("no-store") == nil {
		t.Error("expected --no-store flag")
	}
}

func TestVersionCmd_PrintsVersion(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	if got := buf.String(); got != "lmci version dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestConfigCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range configCmd.Commands() {
		names[cmd.Name()] = true
	}
	if !names["show"] || !names["path"] {
		t.Errorf("config subcommands = %v, want show and path", names)
	}
}

func TestSessionsCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range sessionsCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"list", "show", "export"} {
		if !names[want] {
			t.Errorf("missing sessions subcommand %q", want)
		}
	}
}

// =============================================================================
// Model selection and keys
// =============================================================================

func newModelCmdForTest() *cobra.Command {
	cmd := &cobra.Command{Use: "lmci"}
	cmd.Flags().String("model", "", "")
	cmd.Flags().String("provider", "", "")
	return cmd
}

func TestStartingModel(t *testing.T) {
	tests := []struct {
		name         string
		flags        map[string]string
		cfgProvider  string
		cfgModel     string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{"config default", nil, "openai", "gpt-4o", "openai", "gpt-4o", false},
		{"model flag resolves provider", map[string]string{"model": "claude-3-opus-20240229"}, "openai", "claude-3-opus-20240229", "anthropic", "claude-3-opus-20240229", false},
		{"both flags", map[string]string{"model": "llama3.2", "provider": "ollama"}, "ollama", "llama3.2", "ollama", "llama3.2", false},
		{"qualified model flag", map[string]string{"model": "ollama:llama3.1:70b"}, "openai", "ollama:llama3.1:70b", "ollama", "llama3.1:70b", false},
		{"no provider in config", nil, "", "mixtral-8x7b-32768", "groq", "mixtral-8x7b-32768", false},
		{"unknown model", map[string]string{"model": "nope"}, "openai", "nope", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newModelCmdForTest()
			for k, v := range tt.flags {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatal(err)
				}
			}
			cfg := &config.Config{Default: config.DefaultConfig{Provider: tt.cfgProvider, Model: tt.cfgModel}}

			info, model, err := startingModel(cmd, cfg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s/%s", info.Name, model)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.Name != tt.wantProvider || model != tt.wantModel {
				t.Errorf("got %s/%s, want %s/%s", info.Name, model, tt.wantProvider, tt.wantModel)
			}
		})
	}
}

func TestProviderKeys(t *testing.T) {
	keys := providerKeys(map[string]string{
		"OPENAI_API_KEY": "sk-o",
		"GROQ_API_KEY":   "gsk",
		"SERPER_API_KEY": "serp",
	})

	if keys["openai"] != "sk-o" || keys["groq"] != "gsk" {
		t.Errorf("keys = %v", keys)
	}
	if len(keys) != 2 {
		t.Errorf("expected only provider keys, got %v", keys)
	}
}

func TestPrintCatalog(t *testing.T) {
	registry := provider.NewRegistry(provider.Options{Keys: map[string]string{"openai": "sk"}})
	var buf bytes.Buffer

	printCatalog(&buf, registry)
	out := buf.String()

	for _, want := range []string{"✓ openai", "– groq (set GROQ_API_KEY)", "✓ ollama", "gpt-4o"} {
		if !strings.Contains(out, want) {
			t.Errorf("catalog missing %q:\n%s", want, out)
		}
	}
}

func TestPrintError_AddsHint(t *testing.T) {
	var buf bytes.Buffer
	err := &provider.Error{Provider: "openai", Kind: provider.KindAuth, Err: errors.New("401")}

	printError(&buf, err)

	if !strings.Contains(buf.String(), "Check the API key") {
		t.Errorf("missing hint: %q", buf.String())
	}
}

// =============================================================================
// Completion
// =============================================================================

func TestPrefixCompleter(t *testing.T) {
	complete := prefixCompleter(completionWords())

	got := complete("Change model gpt-4")
	if len(got) != 2 {
		t.Errorf("completions = %v, want gpt-4 and gpt-4o", got)
	}
	if got := complete("tok"); len(got) != 1 || got[0] != "token count" {
		t.Errorf("completions = %v, want token count", got)
	}
	if got := complete("zzz"); len(got) != 0 {
		t.Errorf("completions = %v, want none", got)
	}
}

// =============================================================================
// REPL loop
// =============================================================================

type scriptedInput struct {
	lines   []string
	end     error
	history []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", s.end
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) AppendHistory(item string) {
	s.history = append(s.history, item)
}

type echoProvider struct {
	err error
}

func (p *echoProvider) Name() string { return "openai" }

func (p *echoProvider) Stream(_ context.Context, _ string, msgs []provider.Message) (provider.Stream, error) {
	if p.err != nil {
		return nil, p.err
	}
	last := msgs[len(msgs)-1].Content
	return &sliceStream{SliceSource: render.NewSliceSource("echo: ", last)}, nil
}

type sliceStream struct {
	*render.SliceSource
}

func (s *sliceStream) Close() error { return nil }

type providerMap map[string]provider.Provider

func (m providerMap) Get(name string) (provider.Provider, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return nil, errors.New("no provider " + name)
}

func newTestREPL(p provider.Provider, in *scriptedInput) (*repl, *bytes.Buffer) {
	var buf bytes.Buffer
	term := terminal.New(&buf, &terminal.PlainEngine{Width: 80}, terminal.WithInteractive(false))
	c := chat.New(chat.NewSession("openai", "gpt-4o"), providerMap{"openai": p}, render.New(term), term)
	return &repl{chat: c, in: in, out: term}, &buf
}

func TestREPL_ChatsUntilQuit(t *testing.T) {
	in := &scriptedInput{lines: []string{"hello there", "", "quit", "never read"}}
	r, buf := newTestREPL(&echoProvider{}, in)

	r.welcome()
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Welcome to the Multi-Model AI Chat CLI!", "gpt-4o:", "echo: hello there", "Goodbye!"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(in.lines) != 1 {
		t.Errorf("loop kept reading after quit")
	}
	if len(in.history) != 2 {
		t.Errorf("history = %v, want the two non-empty lines", in.history)
	}
}

func TestREPL_ExitsOnEOFAndAbort(t *testing.T) {
	for _, end := range []error{io.EOF, liner.ErrPromptAborted} {
		r, buf := newTestREPL(&echoProvider{}, &scriptedInput{end: end})
		if err := r.run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		if !strings.Contains(buf.String(), "Goodbye!") {
			t.Errorf("no goodbye after %v", end)
		}
	}
}

func TestREPL_ErrorsDoNotEndChat(t *testing.T) {
	in := &scriptedInput{lines: []string{"hi", "quit"}}
	failing := &echoProvider{err: &provider.Error{Provider: "openai", Kind: provider.KindRateLimit, Err: errors.New("429")}}
	r, buf := newTestREPL(failing, in)

	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Error:") || !strings.Contains(out, "Wait a moment") {
		t.Errorf("error not reported:\n%s", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Errorf("chat ended early:\n%s", out)
	}
}

func TestREPL_PromptFailureIsReturned(t *testing.T) {
	r, _ := newTestREPL(&echoProvider{}, &scriptedInput{end: errors.New("tty gone")})
	if err := r.run(context.Background()); err == nil {
		t.Error("expected error")
	}
}

// =============================================================================
// Setup, render and sessions
// =============================================================================

func TestApplySetup_WritesConfig(t *testing.T) {
	dir := useTempConfig(t)
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	err := applySetup(cmd, tui.Result{
		Keys:     map[string]string{"OPENAI_API_KEY": "sk-new"},
		Provider: "anthropic",
		Model:    "claude-3-opus-20240229",
	})
	if err != nil {
		t.Fatalf("applySetup: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
	if !strings.Contains(buf.String(), "Configuration saved to") {
		t.Errorf("output = %q", buf.String())
	}

	viper.Reset()
	config.Init()
	cfg := config.Get()
	if cfg.Default.Provider != "anthropic" || cfg.Default.Model != "claude-3-opus-20240229" {
		t.Errorf("default = %s/%s", cfg.Default.Provider, cfg.Default.Model)
	}
	if config.Keys()["OPENAI_API_KEY"] != "sk-new" {
		t.Errorf("key not saved: %v", config.Keys())
	}
}

func TestApplySetup_NoChanges(t *testing.T) {
	dir := useTempConfig(t)
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := applySetup(cmd, tui.Result{Keys: map[string]string{}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No changes.") {
		t.Errorf("output = %q", buf.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); !os.IsNotExist(err) {
		t.Error("config written without changes")
	}
}

func TestRenderCmd_StreamsFile(t *testing.T) {
	dir := useTempConfig(t)
	path := filepath.Join(dir, "doc.md")
	doc := "Intro text.\n\n```go\nfmt.Println(\"hi\")\n```\n\nThe end.\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().Int("chunk", 3, "")
	cmd.Flags().Duration("delay", 0, "")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	viper.Set("render.engine", "plain")

	if err := runRender(cmd, []string{path}); err != nil {
		t.Fatalf("runRender: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Intro text.", "fmt.Println(\"hi\")", "The end."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCmd_MissingFile(t *testing.T) {
	useTempConfig(t)
	cmd := &cobra.Command{}
	cmd.Flags().Int("chunk", 16, "")
	cmd.Flags().Duration("delay", 0, "")

	if err := runRender(cmd, []string{"/nonexistent/doc.md"}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSessionsExport(t *testing.T) {
	useTempConfig(t)
	st, err := store.Open(storePath(config.Get()))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	created := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	if err := st.SaveSession(ctx, store.Session{ID: "sess_abc12345", Provider: "openai", Model: "gpt-4o", CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	for _, m := range []store.Message{
		{Role: "user", Content: "What is Go?"},
		{Role: "assistant", Content: "A language.", Provider: "openai", Model: "gpt-4o", Partial: true},
	} {
		if err := st.AppendMessage(ctx, "sess_abc12345", m); err != nil {
			t.Fatal(err)
		}
	}
	st.Close()

	cmd := &cobra.Command{}
	cmd.Flags().StringP("output", "o", "", "")
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := sessionsExportCmd.RunE(cmd, []string{"sess_abc"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"session: sess_abc12345", "## You", "What is Go?", "## gpt-4o", "_(reply interrupted)_"} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSessions(t *testing.T) {
	var buf bytes.Buffer
	printSessions(&buf, nil)
	if !strings.Contains(buf.String(), "No recorded conversations.") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	printSessions(&buf, []store.Session{{
		ID:        "sess_abc12345",
		Model:     "gpt-4o",
		UpdatedAt: time.Date(2024, 9, 1, 10, 0, 0, 0, time.Local),
		Messages:  4,
		Title:     "a\nmultiline question that goes on and on well past the forty column mark",
	}})
	out := buf.String()
	if !strings.Contains(out, "2024-09-01 10:00") || !strings.Contains(out, "a multiline question") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "…") {
		t.Errorf("long title not truncated: %q", out)
	}
}
