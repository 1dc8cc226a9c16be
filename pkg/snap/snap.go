// Package snap finds where a dragged block would connect if it were released.
//
// Candidates are tested rule by rule, so a containment match anywhere in the
// overlap set beats any edge match. Within a rule, candidates are visited in
// block-creation order and the first hit wins, except that among containment
// hits the most deeply nested container is preferred.
package snap

import (
	"fmt"

	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
)

// DefaultThreshold is the snap distance in scene units.
const DefaultThreshold = 20.0

// Relation says how the dragged block connects to its target.
type Relation int

const (
	None        Relation = iota
	Contain              // dragged chain becomes children of the target
	AttachAbove          // dragged chain precedes the target
	AttachBelow          // dragged chain follows the target
)

func (r Relation) String() string {
	switch r {
	case None:
		return "none"
	case Contain:
		return "contain"
	case AttachAbove:
		return "attach-above"
	case AttachBelow:
		return "attach-below"
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Candidate is a pending snap target.
type Candidate struct {
	Target   graph.BlockID `json:"target"`
	Relation Relation      `json:"relation"`
}

// Valid reports whether c names a target.
func (c Candidate) Valid() bool {
	return c.Relation != None && c.Target != graph.NoBlock
}

// Matcher holds the proximity threshold used for edge matches.
type Matcher struct {
	Threshold float64
}

// NewMatcher returns a matcher with the given threshold, or the default when
// threshold is not positive.
func NewMatcher(threshold float64) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// subject is the rigid chain being dragged, in scene coordinates.
type subject struct {
	head, tail   *graph.Block
	headRect     geom.Rect
	tailRect     geom.Rect
	bounds       geom.Rect
	connected    map[graph.BlockID]bool
	isStartChain bool
}

func newSubject(g *graph.Graph, id graph.BlockID) (subject, bool) {
	if g.Get(id) == nil {
		return subject{}, false
	}
	head, tail := g.Get(g.Head(id)), g.Get(g.Tail(id))
	s := subject{
		head:         head,
		tail:         tail,
		headRect:     g.SceneRect(head.ID),
		tailRect:     g.SceneRect(tail.ID),
		connected:    g.Connected(id),
		isStartChain: head.Kind == graph.KindStart,
	}
	s.bounds = s.headRect
	for _, cid := range g.Chain(head.ID) {
		s.bounds = s.bounds.Union(g.SceneRect(cid))
	}
	return s, true
}

// Overlapping returns the blocks whose scene rectangles overlap the chain
// containing id, excluding everything connected to it, in creation order.
func Overlapping(g *graph.Graph, id graph.BlockID) []graph.BlockID {
	s, ok := newSubject(g, id)
	if !ok {
		return nil
	}
	return s.overlapping(g)
}

func (s subject) overlapping(g *graph.Graph) []graph.BlockID {
	var out []graph.BlockID
	for _, cid := range g.IDs() {
		if s.connected[cid] {
			continue
		}
		if g.SceneRect(cid).Overlaps(s.bounds) {
			out = append(out, cid)
		}
	}
	return out
}

// Find returns the best snap candidate for the chain containing id, or a
// Candidate with Relation None.
func (m Matcher) Find(g *graph.Graph, id graph.BlockID) Candidate {
	s, ok := newSubject(g, id)
	if !ok {
		return Candidate{}
	}
	overlap := s.overlapping(g)

	if c, ok := m.findContain(g, s, overlap); ok {
		return c
	}
	for _, cid := range overlap {
		if m.attachAbove(g, s, g.Get(cid)) {
			return Candidate{Target: cid, Relation: AttachAbove}
		}
	}
	for _, cid := range overlap {
		if m.attachBelow(g, s, g.Get(cid)) {
			return Candidate{Target: cid, Relation: AttachBelow}
		}
	}
	return Candidate{}
}

func (m Matcher) findContain(g *graph.Graph, s subject, overlap []graph.BlockID) (Candidate, bool) {
	if s.isStartChain {
		return Candidate{}, false
	}
	best, bestDepth := graph.NoBlock, -1
	anchor := s.headRect.TopLeft()
	for _, cid := range overlap {
		if !g.Get(cid).IsContainer() || !g.SlotRect(cid).Contains(anchor) {
			continue
		}
		if d := len(g.Ancestors(cid)); d > bestDepth {
			best, bestDepth = cid, d
		}
	}
	if best == graph.NoBlock {
		return Candidate{}, false
	}
	return Candidate{Target: best, Relation: Contain}, true
}

// attachAbove tests the chain's bottom edge against the target's top edge.
func (m Matcher) attachAbove(g *graph.Graph, s subject, t *graph.Block) bool {
	if t.Kind == graph.KindStart {
		return false
	}
	if s.isStartChain && (t.Prev != graph.NoBlock || t.Parent != graph.NoBlock) {
		return false
	}
	tr := g.SceneRect(t.ID)
	return geom.Near(s.tailRect.Bottom(), tr.Top(), m.Threshold) &&
		geom.Near(s.headRect.Left(), tr.Left(), m.Threshold)
}

// attachBelow tests the chain's top edge against the target's bottom edge.
func (m Matcher) attachBelow(g *graph.Graph, s subject, t *graph.Block) bool {
	if s.isStartChain {
		return false
	}
	tr := g.SceneRect(t.ID)
	return geom.Near(s.headRect.Top(), tr.Bottom(), m.Threshold) &&
		geom.Near(s.headRect.Left(), tr.Left(), m.Threshold)
}
