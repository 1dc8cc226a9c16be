package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/cobra"
)

// digestCacheSize bounds how many recent sketches watch remembers.
const digestCacheSize = 32

func newWatchCmd(e *env) *cobra.Command {
	var (
		upload bool
		port   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "watch <script>",
		Short: "Regenerate (and optionally upload) whenever a block script changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rb, err := newRebuilder(e, args[0], upload, port, output)
			if err != nil {
				return err
			}
			w, err := newWatcher(args[0])
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			fmt.Fprintln(e.out, mutedStyle.Render("watching "+args[0]+", press Ctrl-C to stop"))
			rb.rebuild(ctx)
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-w.Changes:
					if !ok {
						return nil
					}
					rb.rebuild(ctx)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "upload every new sketch to the board")
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port of the board (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write each new sketch to this file")
	return cmd
}

// outcome is what one rebuild did.
type outcome int

const (
	outcomeFailed outcome = iota
	outcomeUnchanged
	outcomeBuilt
	outcomeUploaded
)

// rebuilder turns the watched script into a sketch on every change. Sketches
// whose digest was already handled are skipped, so saving a file without
// changing the program does not re-upload it.
type rebuilder struct {
	e      *env
	path   string
	upload bool
	port   string
	output string
	seen   *lru.Cache[string, struct{}]
}

func newRebuilder(e *env, path string, upload bool, port, output string) (*rebuilder, error) {
	seen, err := lru.New[string, struct{}](digestCacheSize)
	if err != nil {
		return nil, err
	}
	return &rebuilder{e: e, path: path, upload: upload, port: port, output: output, seen: seen}, nil
}

func (r *rebuilder) rebuild(ctx context.Context) outcome {
	b, err := r.e.build(r.path)
	if err != nil {
		failf(r.e.out, "%v", err)
		r.e.logger.Warn("rebuild failed", "script", r.path, "err", err)
		return outcomeFailed
	}
	if r.seen.Contains(b.Digest) {
		r.e.logger.Debug("sketch unchanged", "script", r.path, "digest", b.Digest[:12])
		return outcomeUnchanged
	}

	if r.output != "" {
		if err := os.WriteFile(r.output, []byte(b.Sketch), 0o644); err != nil {
			failf(r.e.out, "write output: %v", err)
			return outcomeFailed
		}
	}
	r.e.logger.Info("rebuilt", "script", r.path, "blocks", b.Result.Blocks, "bytes", len(b.Sketch))

	if !r.upload {
		r.seen.Add(b.Digest, struct{}{})
		okf(r.e.out, "built %s (%d blocks)", sketchName(r.path), b.Result.Blocks)
		return outcomeBuilt
	}
	if err := r.e.flash(ctx, b, sketchName(r.path), r.port); err != nil {
		// Not remembered, so the next save retries.
		r.e.logger.Warn("upload failed", "script", r.path, "err", err)
		return outcomeFailed
	}
	r.seen.Add(b.Digest, struct{}{})
	return outcomeUploaded
}
