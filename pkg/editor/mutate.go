package editor

import (
	"fmt"
	"slices"

	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
	"github.com/chazu/blockstudio/pkg/snap"
)

// commit splices the chain containing id into the graph at c.
func (s *Session) commit(id graph.BlockID, c snap.Candidate) {
	members := s.g.Chain(s.g.Head(id))
	switch c.Relation {
	case snap.Contain:
		s.contain(c.Target, members)
	case snap.AttachBelow:
		s.attachBelow(c.Target, members)
	case snap.AttachAbove:
		s.attachAbove(c.Target, members)
	}
}

// contain appends members to the end of container's child list.
func (s *Session) contain(container graph.BlockID, members []graph.BlockID) {
	c := s.g.Get(container)
	if n := len(c.Children); n > 0 {
		s.g.Link(c.Children[n-1], members[0])
	}
	for _, m := range members {
		s.insertChild(container, m)
	}
	s.refit(container)
}

// attachBelow splices members between target and its old successor.
func (s *Session) attachBelow(target graph.BlockID, members []graph.BlockID) {
	t := s.g.Get(target)
	head, tail := members[0], members[len(members)-1]
	oldNext := t.Next
	s.g.Link(target, head)
	s.g.Link(tail, oldNext)

	if t.Parent != graph.NoBlock {
		for _, m := range members {
			s.insertChild(t.Parent, m)
		}
		s.refit(t.Parent)
		return
	}
	s.g.Get(head).Pos = geom.V(t.Pos.X, t.Pos.Y+t.Height)
	s.reflowDown(head)
}

// attachAbove splices members between target and its old predecessor. The
// target stays put and the upstream chain moves up to meet it.
func (s *Session) attachAbove(target graph.BlockID, members []graph.BlockID) {
	t := s.g.Get(target)
	head, tail := members[0], members[len(members)-1]
	oldPrev := t.Prev
	s.g.Link(oldPrev, head)
	s.g.Link(tail, target)

	if t.Parent != graph.NoBlock {
		for _, m := range slices.Backward(members) {
			s.insertChild(t.Parent, m)
		}
		s.refit(t.Parent)
		return
	}
	tb := s.g.Get(tail)
	tb.Pos = geom.V(t.Pos.X, t.Pos.Y-tb.Height)
	s.reflowUp(tail)
}

// Detach removes a block from its sequence and from its container, joining
// its former neighbours directly. A contained block keeps its scene position
// and becomes independently movable; the former container shrinks. Detaching
// a standalone block is a no-op.
func (s *Session) Detach(id graph.BlockID) error {
	b, err := s.lookup(id)
	if err != nil {
		return err
	}
	if _, ok := s.gesture.origin[id]; ok {
		return fmt.Errorf("%w: block %d is being dragged", ErrGestureState, id)
	}
	if b.Standalone() {
		return nil
	}
	s.detach(b)
	s.check()
	return nil
}

func (s *Session) detach(b *graph.Block) {
	scene := s.g.ScenePos(b.ID)
	parent := b.Parent
	s.g.Unlink(b.ID)
	if parent == graph.NoBlock {
		return
	}
	s.g.Disown(parent, b.ID)
	b.Pos = scene
	s.refit(parent)
}

// Delete detaches a block and removes it, with everything nested inside it,
// from the graph. A gesture involving the block is cancelled first.
func (s *Session) Delete(id graph.BlockID) error {
	b, err := s.lookup(id)
	if err != nil {
		return err
	}
	if _, ok := s.gesture.origin[id]; ok {
		s.Cancel()
	}
	if !b.Standalone() {
		s.detach(b)
	}
	for _, d := range s.g.Descendants(id) {
		s.g.Remove(d)
	}
	s.g.Remove(id)
	s.check()
	return nil
}
