package codegen

import (
	"fmt"
	"strings"

	"github.com/chazu/blockstudio/pkg/graph"
)

// Indent is the text prepended once per nesting level.
const Indent = "  "

// Result is the outcome of a successful generation run.
type Result struct {
	Code     string
	Declared []string // variable names in declaration order
	Blocks   int      // blocks visited, Start included
}

type emitter struct {
	g       *graph.Graph
	reg     Registry
	lines   []string
	visited map[graph.BlockID]bool
}

// GenerateProgram generates code from the graph's Start block.
func GenerateProgram(g *graph.Graph) (string, error) {
	return Generate(g, g.Start())
}

// Generate returns the statements of the program rooted at start, one per
// line. It fails with ErrNoStartBlock when start is not a Start block, and
// with a *ValidationError on the first invalid field.
func Generate(g *graph.Graph, start graph.BlockID) (string, error) {
	res, err := Run(g, start)
	if err != nil {
		return "", err
	}
	return res.Code, nil
}

// Run is Generate with the run's bookkeeping attached.
func Run(g *graph.Graph, start graph.BlockID) (Result, error) {
	b := g.Get(start)
	if b == nil {
		return Result{}, ErrNoStartBlock
	}
	if b.Kind != graph.KindStart {
		return Result{}, fmt.Errorf("%w: block %d is a %s block", ErrNoStartBlock, start, b.Kind)
	}
	e := &emitter{g: g, visited: make(map[graph.BlockID]bool)}
	if err := e.walk(start, 0); err != nil {
		return Result{}, err
	}
	return Result{
		Code:     strings.Join(e.lines, "\n"),
		Declared: e.reg.Names(),
		Blocks:   len(e.visited),
	}, nil
}

// walk emits id and its successors at depth, descending into containers.
func (e *emitter) walk(id graph.BlockID, depth int) error {
	for b := e.g.Get(id); b != nil; b = e.g.Get(b.Next) {
		if e.visited[b.ID] {
			return fmt.Errorf("codegen: block %d reached twice", b.ID)
		}
		e.visited[b.ID] = true

		r, ok := rules[b.Kind]
		if !ok {
			return fmt.Errorf("codegen: %w: %s", graph.ErrUnknownKind, b.Kind)
		}
		text, err := r(e, b, depth)
		if err != nil {
			return err
		}
		switch {
		case b.Kind == graph.KindStart:
		case b.IsContainer():
			e.emit(depth, text+" {")
			if len(b.Children) > 0 {
				if err := e.walk(b.Children[0], depth+1); err != nil {
					return err
				}
			}
			e.emit(depth, "}")
		default:
			e.emit(depth, text)
		}
	}
	return nil
}

func (e *emitter) emit(depth int, line string) {
	e.lines = append(e.lines, strings.Repeat(Indent, depth)+line)
}
