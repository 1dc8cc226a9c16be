package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/blockstudio/pkg/codegen"
	"github.com/chazu/blockstudio/pkg/graph"
)

var errCheckFailed = errors.New("check failed")

func newCheckCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check <script>",
		Short: "Validate the program a block script builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.check(args[0])
		},
	}
}

// check reports script errors, structural findings and generation errors
// for the script at path.
func (e *env) check(path string) error {
	s, err := e.evaluate(path)
	if err != nil {
		var se *ScriptError
		if errors.As(err, &se) {
			for _, ee := range se.Errors {
				failf(e.out, "script: %s", ee.Error())
			}
			return errCheckFailed
		}
		return err
	}
	okf(e.out, "script evaluated: %d blocks", s.Graph().Len())

	g := s.Graph()
	ok := true
	if findings := graph.Validate(g); len(findings) > 0 {
		ok = false
		for _, f := range findings {
			failf(e.out, "%s", f.Error())
		}
	} else {
		okf(e.out, "structure is consistent")
	}

	res, err := codegen.Run(g, g.Start())
	switch {
	case errors.Is(err, codegen.ErrNoStartBlock):
		ok = false
		failf(e.out, "no start block")
	case err != nil:
		ok = false
		failf(e.out, "%s", err.Error())
	default:
		lines := 0
		if res.Code != "" {
			lines = strings.Count(res.Code, "\n") + 1
		}
		okf(e.out, "generates %d lines from %d blocks", lines, res.Blocks)
		if len(res.Declared) > 0 {
			okf(e.out, "variables: %s", strings.Join(res.Declared, ", "))
		}
		if loose := g.Len() - res.Blocks; loose > 0 {
			warnf(e.out, "%d %s not connected to start and will be ignored", loose, plural(loose, "block is", "blocks are"))
		}
	}

	e.logger.Debug("checked", "script", path, "blocks", g.Len(), "ok", ok)
	if !ok {
		return errCheckFailed
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
