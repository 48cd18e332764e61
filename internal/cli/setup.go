package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buker/lmci/internal/config"
	"github.com/buker/lmci/internal/tui"
	"github.com/buker/lmci/internal/tui/shared"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store API keys and pick the default model",
	Long: `Walk through the API keys of each provider, then choose the model new
chats start with. Keys are saved to ~/.llm_cli/config.json, readable only
by you. Leave a key blank to keep the saved value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		res, err := tui.RunSetup(tui.Options{
			KeyNames:     config.KeyNames,
			Saved:        config.Keys(),
			DefaultModel: cfg.Default.Model,
		})
		if errors.Is(err, tui.ErrCancelled) {
			fmt.Fprintln(cmd.OutOrStdout(), shared.DimStyle.Render("Setup cancelled. Nothing was saved."))
			return nil
		}
		if err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		return applySetup(cmd, res)
	},
}

// applySetup writes what the wizard collected.
func applySetup(cmd *cobra.Command, res tui.Result) error {
	out := cmd.OutOrStdout()
	if len(res.Keys) == 0 && res.Model == "" {
		fmt.Fprintln(out, shared.DimStyle.Render("No changes."))
		return nil
	}
	if len(res.Keys) > 0 {
		if err := config.SaveKeys(res.Keys); err != nil {
			return err
		}
	}
	if res.Model != "" {
		if err := config.SetDefaultModel(res.Provider, res.Model); err != nil {
			return err
		}
		fmt.Fprintln(out, shared.InfoStyle.Render(fmt.Sprintf("Default model: %s (Provider: %s)", res.Model, res.Provider)))
	}
	path := config.GetConfigPath()
	if path == "" {
		path = config.DefaultPath()
	}
	fmt.Fprintln(out, shared.SuccessStyle.Render("Configuration saved to "+path))
	return nil
}
