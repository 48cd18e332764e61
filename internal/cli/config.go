package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buker/lmci/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View lmci configuration settings. Use 'lmci setup' to change keys.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		keys := config.Keys()
		w := cmd.OutOrStdout()

		fmt.Fprintln(w, "Current configuration:")
		fmt.Fprintln(w, "----------------------")
		fmt.Fprintf(w, "Default model:   %s (Provider: %s)\n", cfg.Default.Model, cfg.Default.Provider)
		fmt.Fprintf(w, "Render engine:   %s\n", cfg.Render.Engine)
		fmt.Fprintf(w, "Render style:    %s\n", cfg.Render.Style)
		fmt.Fprintf(w, "Render width:    %s\n", widthText(cfg.Render.Width))
		fmt.Fprintf(w, "Flush threshold: %d bytes\n", cfg.Render.FlushThreshold)
		fmt.Fprintf(w, "Request timeout: %s\n", cfg.Request.Timeout)
		fmt.Fprintf(w, "Max tokens:      %s\n", maxTokensText(cfg.Request.MaxTokens))
		fmt.Fprintf(w, "Ollama URL:      %s\n", cfg.Ollama.BaseURL)
		fmt.Fprintf(w, "Log level:       %s\n", cfg.Log.Level)
		fmt.Fprintf(w, "Store sessions:  %v (%s)\n", cfg.Store.Enabled, storePath(cfg))
		fmt.Fprintln(w, "\nAPI keys:")
		for _, name := range config.KeyNames {
			state := "not set"
			if keys[name] != "" {
				state = "set"
			}
			fmt.Fprintf(w, "  %-20s %s\n", name+":", state)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		path := config.GetConfigPath()
		if path == "" {
			fmt.Fprintln(w, "No config file found. Run 'lmci setup' to create one at:")
			fmt.Fprintf(w, "  %s\n", config.DefaultPath())
		} else {
			fmt.Fprintf(w, "Config file: %s\n", path)
		}
		return nil
	},
}

func widthText(n int) string {
	if n <= 0 {
		return "terminal"
	}
	return fmt.Sprint(n)
}

func maxTokensText(n int) string {
	if n <= 0 {
		return "provider default"
	}
	return fmt.Sprint(n)
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
