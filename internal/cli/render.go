package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/buker/lmci/internal/config"
	"github.com/buker/lmci/internal/logging"
	"github.com/buker/lmci/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Stream a markdown file through the reply renderer",
	Long: `Feed a markdown file, or stdin, to the renderer in small chunks the way a
model reply arrives. Useful for checking engines and styles without a
provider.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().Int("chunk", 16, "Bytes per fragment")
	renderCmd.Flags().Duration("delay", 0, "Pause between fragments, e.g. 20ms")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	debug, _ := cmd.Flags().GetBool("debug")
	logger := logging.Setup(cfg.Log.Level, debug)
	chunk, _ := cmd.Flags().GetInt("chunk")
	delay, _ := cmd.Flags().GetDuration("delay")

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	term, err := newTerminal(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	renderer := newRenderer(cfg, term, render.WithLogger(logger))

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	var src render.Source = render.NewReaderSource(in, chunk)
	if delay > 0 {
		src = &pacedSource{src: src, delay: delay}
	}
	_, err = renderer.Render(ctx, src)
	term.EnsureNewline()
	return err
}

// pacedSource waits before each fragment.
type pacedSource struct {
	src   render.Source
	delay time.Duration
}

func (p *pacedSource) Recv() (string, error) {
	time.Sleep(p.delay)
	return p.src.Recv()
}
