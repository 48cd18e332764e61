// Package cli implements the command-line interface for lmci using cobra.
// The root command runs the interactive chat; subcommands cover setup,
// the model catalog, configuration, stored sessions and offline rendering.
package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/buker/lmci/internal/config"
	"github.com/buker/lmci/internal/provider"
	"github.com/buker/lmci/internal/render"
	"github.com/buker/lmci/internal/terminal"
	"github.com/buker/lmci/internal/tui/shared"
)

var (
	// Version is set at build time via -ldflags
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "lmci",
		Short: "Chat with hosted and local language models in the terminal",
		Long: `lmci is an interactive chat client for OpenAI, Anthropic, Groq, Cerebras,
OpenRouter, Ollama and Claude Code.

Replies stream in as they are generated. Prose is rendered as markdown
paragraph by paragraph, and code blocks are highlighted once complete.`,
		SilenceUsage: true,
		RunE:         runChat,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default ~/.llm_cli/config.json)")
	rootCmd.PersistentFlags().StringP("model", "m", "", "Model to start with, as name or provider:model")
	rootCmd.PersistentFlags().StringP("provider", "p", "", "Provider of the starting model")
	rootCmd.PersistentFlags().StringP("engine", "e", "", "Markdown engine: glamour, mdf or plain")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Log diagnostics to stderr")
	rootCmd.Flags().Bool("no-store", false, "Do not record this conversation")

	// Bind flags to viper
	config.BindFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	}
	config.Init()
}

// Execute runs the root command and returns any error encountered.
// This is the main entry point for the CLI application.
func Execute() error {
	return rootCmd.Execute()
}

// startingModel picks the provider and model a chat opens with. A --model
// flag without --provider is resolved through the catalog.
func startingModel(cmd *cobra.Command, cfg *config.Config) (provider.Info, string, error) {
	model := cfg.Default.Model
	flags := cmd.Flags()
	if cfg.Default.Provider == "" || (flags.Changed("model") && !flags.Changed("provider")) {
		return provider.Resolve(model)
	}
	return provider.Resolve(cfg.Default.Provider + ":" + model)
}

// providerKeys maps configured key settings to provider names.
func providerKeys(keys map[string]string) map[string]string {
	out := make(map[string]string)
	for _, info := range provider.Catalog() {
		if info.KeyName == "" {
			continue
		}
		if v := keys[info.KeyName]; v != "" {
			out[info.Name] = v
		}
	}
	return out
}

func providerOptions(cfg *config.Config, keys map[string]string) provider.Options {
	return provider.Options{
		Keys:      providerKeys(keys),
		BaseURLs:  map[string]string{"ollama": cfg.Ollama.BaseURL},
		MaxTokens: cfg.Request.MaxTokens,
		Timeout:   cfg.Request.Timeout,
	}
}

// renderWidth returns the configured width, or the terminal's.
func renderWidth(cfg *config.Config, out io.Writer) int {
	if cfg.Render.Width > 0 {
		return cfg.Render.Width
	}
	return terminal.Width(out)
}

func newTerminal(cfg *config.Config, out io.Writer) (*terminal.Terminal, error) {
	engine, err := terminal.NewEngine(terminal.EngineConfig{
		Name:    cfg.Render.Engine,
		Style:   cfg.Render.Style,
		Width:   renderWidth(cfg, out),
		Profile: terminal.ColorProfile(out),
	})
	if err != nil {
		return nil, err
	}
	return terminal.New(out, engine), nil
}

func newRenderer(cfg *config.Config, term *terminal.Terminal, opts ...render.Option) *render.Renderer {
	opts = append([]render.Option{
		render.WithStatus(term),
		render.WithFlushThreshold(cfg.Render.FlushThreshold),
	}, opts...)
	return render.New(term, opts...)
}

func storePath(cfg *config.Config) string {
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	return filepath.Join(config.Dir(), "sessions.db")
}

// printError writes err with any hint the provider error carries.
func printError(w io.Writer, err error) {
	msg := "Error: " + err.Error()
	var perr *provider.Error
	if errors.As(err, &perr) {
		if hint := perr.Hint(); hint != "" {
			msg += "\n" + hint
		}
	}
	fmt.Fprintln(w, shared.ErrorStyle.Render(msg))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lmci version %s\n", Version)
	},
}
