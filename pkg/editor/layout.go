package editor

import (
	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
)

// insertChild adds m to parent's child list at the index its sequence links
// call for: right after its predecessor if that is already a sibling, else
// right before its successor if that is, else at the end.
func (s *Session) insertChild(parent, m graph.BlockID) {
	b := s.g.Get(m)
	idx := len(s.g.Get(parent).Children)
	if i := s.g.ChildIndex(parent, b.Prev); b.Prev != graph.NoBlock && i >= 0 {
		idx = i + 1
	} else if i := s.g.ChildIndex(parent, b.Next); b.Next != graph.NoBlock && i >= 0 {
		idx = i
	}
	s.g.Adopt(parent, m, idx)
}

// layoutChildren stacks a container's children flush from the child inset
// and sets its height to chrome plus content.
func (s *Session) layoutChildren(c *graph.Block) {
	y := graph.ChildInsetY
	for _, id := range c.Children {
		child := s.g.Get(id)
		child.Pos = geom.V(graph.ChildInsetX, y)
		y += child.Height
	}
	c.Height = graph.ContainerChrome + s.g.ContentHeight(c.ID)
}

// refit re-lays out a container and each of its ancestors, innermost first.
// When the outermost container changes height, every block sequenced after
// it shifts by the same amount.
func (s *Session) refit(id graph.BlockID) {
	for b := s.g.Get(id); b != nil; b = s.g.Get(b.Parent) {
		old := b.Height
		s.layoutChildren(b)
		if b.Parent != graph.NoBlock {
			continue
		}
		if delta := b.Height - old; delta != 0 {
			s.shiftAfter(b.ID, geom.V(0, delta))
		}
		return
	}
}

// shiftAfter translates every successor of id by d.
func (s *Session) shiftAfter(id graph.BlockID, d geom.Vec) {
	chain := s.g.Chain(id)
	for _, n := range chain[1:] {
		b := s.g.Get(n)
		b.Pos = b.Pos.Add(d)
	}
}

// reflowDown places each successor of id flush below its predecessor.
func (s *Session) reflowDown(id graph.BlockID) {
	prev := s.g.Get(id)
	seen := map[graph.BlockID]bool{id: true}
	for next := s.g.Get(prev.Next); next != nil && !seen[next.ID]; next = s.g.Get(next.Next) {
		seen[next.ID] = true
		next.Pos = geom.V(prev.Pos.X, prev.Pos.Y+prev.Height)
		prev = next
	}
}

// reflowUp places each predecessor of id flush above its successor.
func (s *Session) reflowUp(id graph.BlockID) {
	cur := s.g.Get(id)
	seen := map[graph.BlockID]bool{id: true}
	for prev := s.g.Get(cur.Prev); prev != nil && !seen[prev.ID]; prev = s.g.Get(prev.Prev) {
		seen[prev.ID] = true
		prev.Pos = geom.V(cur.Pos.X, cur.Pos.Y-prev.Height)
		cur = prev
	}
}
