package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buker/lmci/internal/config"
	"github.com/buker/lmci/internal/provider"
	"github.com/buker/lmci/internal/tui/shared"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and which providers are ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		registry := provider.NewRegistry(providerOptions(cfg, config.Keys()))
		printCatalog(cmd.OutOrStdout(), registry)
		return nil
	},
}

// printCatalog lists every provider with its models, marking the ones
// that have credentials.
func printCatalog(w io.Writer, registry *provider.Registry) {
	for _, info := range provider.Catalog() {
		mark, note := shared.StatusIndicatorDone, ""
		if !registry.Available(info.Name) {
			mark, note = shared.StatusIndicatorSkipped, " (set "+info.KeyName+")"
		}
		header := fmt.Sprintf("%s %s%s", mark, info.Name, note)
		if mark == shared.StatusIndicatorDone {
			fmt.Fprintln(w, shared.StatusDoneStyle.Render(header))
		} else {
			fmt.Fprintln(w, shared.DimStyle.Render(header))
		}
		fmt.Fprintln(w, "    "+strings.Join(info.Models, ", "))
	}
	fmt.Fprintln(w, shared.DimStyle.Render("\nOther models can be named as provider:model, e.g. ollama:qwen2.5-coder."))
}
