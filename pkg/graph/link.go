package graph

import "slices"

// Link makes next follow prev. Either side may be NoBlock, which clears the
// link on the other side only.
func (g *Graph) Link(prev, next BlockID) {
	if p := g.Get(prev); p != nil {
		p.Next = next
	}
	if n := g.Get(next); n != nil {
		n.Prev = prev
	}
}

// Unlink removes id from its sequence and joins its former neighbours to each
// other.
func (g *Graph) Unlink(id BlockID) {
	b := g.Get(id)
	if b == nil {
		return
	}
	prev, next := b.Prev, b.Next
	b.Prev, b.Next = NoBlock, NoBlock
	g.Link(prev, next)
}

// Adopt inserts child into parent's child list at index (clamped to the list
// bounds) and marks it as no longer independently movable. The caller keeps
// the sequence links of the siblings consistent with the new order.
func (g *Graph) Adopt(parent, child BlockID, index int) {
	p, c := g.Get(parent), g.Get(child)
	if p == nil || c == nil || !p.IsContainer() || slices.Contains(p.Children, child) {
		return
	}
	index = max(0, min(index, len(p.Children)))
	p.Children = slices.Insert(p.Children, index, child)
	c.Parent = parent
	c.Movable = false
}

// Disown removes child from parent's child list and restores its independent
// movability. Its position is left untouched.
func (g *Graph) Disown(parent, child BlockID) {
	p, c := g.Get(parent), g.Get(child)
	if p == nil || c == nil {
		return
	}
	if i := slices.Index(p.Children, child); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	if c.Parent == parent {
		c.Parent = NoBlock
		c.Movable = true
	}
}

// ChildIndex returns the position of child in parent's child list, or -1.
func (g *Graph) ChildIndex(parent, child BlockID) int {
	p := g.Get(parent)
	if p == nil {
		return -1
	}
	return slices.Index(p.Children, child)
}
