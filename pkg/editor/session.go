// Package editor owns an interactive editing session over a block graph:
// block creation, the grab/drag/release gesture, and every structural edit
// that a gesture or an explicit delete commits.
//
// A Session is driven by a single actor and is not safe for concurrent use.
package editor

import (
	"errors"
	"fmt"

	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
	"github.com/chazu/blockstudio/pkg/snap"
)

var (
	ErrUnknownBlock = errors.New("editor: unknown block")
	ErrNotDraggable = errors.New("editor: block is not independently draggable")
	ErrGestureState = errors.New("editor: operation not valid in the current gesture state")
)

// Option configures a Session.
type Option func(*Session)

// WithThreshold sets the snap distance used by the matcher.
func WithThreshold(t float64) Option {
	return func(s *Session) {
		s.matcher = snap.NewMatcher(t)
	}
}

// WithStrictChecks makes the session validate the graph after every
// mutation and panic on the first structural finding.
func WithStrictChecks() Option {
	return func(s *Session) {
		s.strict = true
	}
}

// Session is an editing session over one graph.
type Session struct {
	g       *graph.Graph
	matcher snap.Matcher
	strict  bool
	gesture gesture
}

// New creates a session over an empty graph.
func New(opts ...Option) *Session {
	s := &Session{
		g:       graph.New(),
		matcher: snap.NewMatcher(snap.DefaultThreshold),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Graph returns the session's graph. Callers must not mutate it directly.
func (s *Session) Graph() *graph.Graph {
	return s.g
}

// Threshold returns the snap distance in use.
func (s *Session) Threshold() float64 {
	return s.matcher.Threshold
}

// CreateBlock adds a standalone block at the scene position pos. Creating a
// Start block deletes the previous Start block, with all its links, first.
func (s *Session) CreateBlock(kind graph.Kind, pos geom.Vec) (graph.BlockID, error) {
	if !kind.Valid() {
		return graph.NoBlock, fmt.Errorf("%w: %d", graph.ErrUnknownKind, int(kind))
	}
	if kind == graph.KindStart {
		if old := s.g.Start(); old != graph.NoBlock {
			if err := s.Delete(old); err != nil {
				return graph.NoBlock, err
			}
		}
	}
	b, err := s.g.Add(kind, pos)
	if err != nil {
		return graph.NoBlock, err
	}
	s.check()
	return b.ID, nil
}

// SetField edits one field of a block.
func (s *Session) SetField(id graph.BlockID, name, value string) error {
	if !s.g.Has(id) {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	return s.g.SetField(id, name, value)
}

func (s *Session) lookup(id graph.BlockID) (*graph.Block, error) {
	b := s.g.Get(id)
	if b == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	return b, nil
}

// check runs the structural validator in strict mode.
func (s *Session) check() {
	if !s.strict {
		return
	}
	if errs := graph.Validate(s.g); len(errs) > 0 {
		panic(fmt.Sprintf("editor: structural invariant violated: %v", errs))
	}
}
