package graph

import (
	"fmt"
	"slices"
)

// InvariantError describes a single structural finding.
type InvariantError struct {
	Block   BlockID // which block has the problem (NoBlock if graph-level)
	Message string
}

func (e InvariantError) Error() string {
	if e.Block == NoBlock {
		return "graph: " + e.Message
	}
	return fmt.Sprintf("graph: block %d: %s", e.Block, e.Message)
}

// Validate checks the structural invariants of g and returns every finding.
// An empty slice means the graph is consistent. It never mutates the graph.
func Validate(g *Graph) []InvariantError {
	var errs []InvariantError
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateSequence(g)...)
	errs = append(errs, validateContainment(g)...)
	errs = append(errs, validateAcyclic(g)...)
	errs = append(errs, validateStart(g)...)
	errs = append(errs, validateHeights(g)...)
	return errs
}

func invariant(id BlockID, format string, args ...any) InvariantError {
	return InvariantError{Block: id, Message: fmt.Sprintf(format, args...)}
}

// validateReferences checks that every link names a live block.
func validateReferences(g *Graph) []InvariantError {
	var errs []InvariantError
	for _, b := range g.Blocks() {
		for _, ref := range []struct {
			name string
			id   BlockID
		}{{"next", b.Next}, {"prev", b.Prev}, {"parent", b.Parent}} {
			if ref.id != NoBlock && !g.Has(ref.id) {
				errs = append(errs, invariant(b.ID, "%s references missing block %d", ref.name, ref.id))
			}
		}
		for _, c := range b.Children {
			if !g.Has(c) {
				errs = append(errs, invariant(b.ID, "child references missing block %d", c))
			}
		}
		if len(b.Children) > 0 && !b.IsContainer() {
			errs = append(errs, invariant(b.ID, "%s is not a container but has %d children", b.Kind, len(b.Children)))
		}
	}
	return errs
}

// validateSequence checks next/prev symmetry and that linked blocks share a
// parent.
func validateSequence(g *Graph) []InvariantError {
	var errs []InvariantError
	for _, b := range g.Blocks() {
		if b.Next == b.ID || b.Prev == b.ID {
			errs = append(errs, invariant(b.ID, "block is linked to itself"))
			continue
		}
		if n := g.Get(b.Next); n != nil {
			if n.Prev != b.ID {
				errs = append(errs, invariant(b.ID, "next is %d but its prev is %d", n.ID, n.Prev))
			}
			if n.Parent != b.Parent {
				errs = append(errs, invariant(b.ID, "next %d has parent %d, want %d", n.ID, n.Parent, b.Parent))
			}
		}
		if p := g.Get(b.Prev); p != nil && p.Next != b.ID {
			errs = append(errs, invariant(b.ID, "prev is %d but its next is %d", p.ID, p.Next))
		}
	}
	return errs
}

// validateContainment checks parent/children agreement and that a child list
// is exactly one sequence chain in order.
func validateContainment(g *Graph) []InvariantError {
	var errs []InvariantError
	for _, b := range g.Blocks() {
		if p := g.Get(b.Parent); p != nil {
			if n := count(p.Children, b.ID); n != 1 {
				errs = append(errs, invariant(b.ID, "appears %d times in children of parent %d", n, p.ID))
			}
			if b.Movable {
				errs = append(errs, invariant(b.ID, "contained block is independently movable"))
			}
		} else if b.Parent == NoBlock && !b.Movable {
			errs = append(errs, invariant(b.ID, "top-level block is not movable"))
		}

		for i, cid := range b.Children {
			c := g.Get(cid)
			if c == nil {
				continue
			}
			if c.Parent != b.ID {
				errs = append(errs, invariant(b.ID, "child %d has parent %d", cid, c.Parent))
			}
			want := NoBlock
			if i > 0 {
				want = b.Children[i-1]
			}
			if c.Prev != want {
				errs = append(errs, invariant(b.ID, "child %d at index %d has prev %d, want %d", cid, i, c.Prev, want))
			}
			want = NoBlock
			if i < len(b.Children)-1 {
				want = b.Children[i+1]
			}
			if c.Next != want {
				errs = append(errs, invariant(b.ID, "child %d at index %d has next %d, want %d", cid, i, c.Next, want))
			}
		}
	}
	return errs
}

// validateAcyclic checks that no sequence walk or parent walk returns to its
// starting block.
func validateAcyclic(g *Graph) []InvariantError {
	var errs []InvariantError
	for _, b := range g.Blocks() {
		if onCycle(g, b.ID, func(x *Block) BlockID { return x.Next }) {
			errs = append(errs, invariant(b.ID, "sequence cycle through block"))
		}
		if onCycle(g, b.ID, func(x *Block) BlockID { return x.Parent }) {
			errs = append(errs, invariant(b.ID, "block is its own ancestor"))
		}
	}
	return errs
}

func onCycle(g *Graph, id BlockID, step func(*Block) BlockID) bool {
	seen := map[BlockID]bool{}
	for b := g.Get(id); b != nil; b = g.Get(step(b)) {
		if seen[b.ID] {
			return b.ID == id
		}
		seen[b.ID] = true
	}
	return false
}

// validateStart checks the Start singleton and that Start stays a chain head.
func validateStart(g *Graph) []InvariantError {
	var errs []InvariantError
	var starts []BlockID
	for _, b := range g.Blocks() {
		if b.Kind != KindStart {
			continue
		}
		starts = append(starts, b.ID)
		if b.Parent != NoBlock {
			errs = append(errs, invariant(b.ID, "start block is inside container %d", b.Parent))
		}
		if b.Prev != NoBlock {
			errs = append(errs, invariant(b.ID, "start block follows block %d", b.Prev))
		}
	}
	if len(starts) > 1 {
		errs = append(errs, invariant(NoBlock, "%d start blocks %v", len(starts), starts))
	}
	if g.start != NoBlock && !slices.Contains(starts, g.start) {
		errs = append(errs, invariant(NoBlock, "recorded start %d is not a start block", g.start))
	}
	if len(starts) == 1 && g.start != starts[0] {
		errs = append(errs, invariant(NoBlock, "start block %d is not recorded as start", starts[0]))
	}
	return errs
}

func count(ids []BlockID, id BlockID) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}
