package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chazu/blockstudio/pkg/toolchain"
)

func newUploadCmd(e *env) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "upload <script>",
		Short: "Generate, compile and upload a block script to the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.build(args[0])
			if err != nil {
				return err
			}
			return e.flash(cmd.Context(), b, sketchName(args[0]), port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port of the board (overrides config)")
	return cmd
}

// flash writes b's sketch under the sketch directory, then compiles and
// uploads it.
func (e *env) flash(ctx context.Context, b *build, name, port string) error {
	if port == "" {
		port = e.cfg.Port
	}
	folder, err := toolchain.WriteSketch(e.cfg.SketchDir, name, b.Sketch)
	if err != nil {
		return err
	}
	r := newRunner(e.cfg, b.Profile.FQBN, port, e.logger)
	if _, err := r.Flash(ctx, folder); err != nil {
		failf(e.out, "upload of %s failed", name)
		return err
	}
	okf(e.out, "uploaded %s to %s (%s)", name, port, b.Profile.FQBN)
	return nil
}
