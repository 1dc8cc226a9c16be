package codegen

import (
	"errors"
	"fmt"

	"github.com/chazu/blockstudio/pkg/graph"
)

// ErrNoStartBlock is returned when generation has no Start block to begin
// from.
var ErrNoStartBlock = errors.New("codegen: no start block")

// ValidationError is a user-facing semantic failure on one block field.
type ValidationError struct {
	Block  graph.BlockID
	Kind   graph.Kind
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("codegen: %s block %d: %s %q %s", e.Kind, e.Block, e.Field, e.Value, e.Reason)
}
