package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newGenerateCmd(e *env) *cobra.Command {
	var (
		wrap   bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "generate <script>",
		Short: "Print the code a block script generates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.build(args[0])
			if err != nil {
				return err
			}
			text := b.Result.Code
			if wrap {
				text = b.Sketch
			}
			text = strings.TrimRight(text, "\n") + "\n"

			if output != "" {
				if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			} else {
				fmt.Fprint(e.out, text)
			}
			e.logger.Info("generated",
				"script", args[0],
				"blocks", b.Result.Blocks,
				"bytes", len(text),
				"declared", len(b.Result.Declared),
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wrap, "sketch", false, "wrap the statements in a complete Arduino sketch")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
