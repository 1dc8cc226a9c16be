package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/blockstudio/pkg/geom"
)

var (
	ErrUnknownKind   = errors.New("graph: unknown block kind")
	ErrUnknownField  = errors.New("graph: unknown field")
	ErrInvalidChoice = errors.New("graph: value is not one of the field choices")
	ErrUnknownBlock  = errors.New("graph: unknown block")
)

// Graph is the arena that owns every block of an editing session. It is not
// safe for concurrent use.
type Graph struct {
	blocks map[BlockID]*Block
	order  []BlockID // creation order, the stable iteration order
	nextID BlockID
	start  BlockID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		blocks: make(map[BlockID]*Block),
		nextID: 1,
	}
}

// Add creates a standalone block of the given kind at the scene position pos,
// with its kind's default frame and field values. Adding a Start block while
// another exists fails; callers replace the old one with Remove first.
func (g *Graph) Add(kind Kind, pos geom.Vec) (*Block, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if kind == KindStart && g.start != NoBlock {
		return nil, fmt.Errorf("graph: start block %d already exists", g.start)
	}
	w, h := kind.DefaultSize()
	b := &Block{
		ID:      g.nextID,
		Kind:    kind,
		Fields:  make(map[string]string, len(kind.Fields())),
		Pos:     pos,
		Width:   w,
		Height:  h,
		Movable: true,
	}
	for _, f := range kind.Fields() {
		b.Fields[f.Name] = f.Default
	}
	g.nextID++
	g.blocks[b.ID] = b
	g.order = append(g.order, b.ID)
	if kind == KindStart {
		g.start = b.ID
	}
	return b, nil
}

// Get returns the block with the given ID, or nil.
func (g *Graph) Get(id BlockID) *Block {
	if id == NoBlock {
		return nil
	}
	return g.blocks[id]
}

// Has reports whether id names a live block.
func (g *Graph) Has(id BlockID) bool {
	return g.Get(id) != nil
}

// Len returns the number of blocks.
func (g *Graph) Len() int {
	return len(g.blocks)
}

// IDs returns every block ID in creation order.
func (g *Graph) IDs() []BlockID {
	return slices.Clone(g.order)
}

// Blocks returns every block in creation order.
func (g *Graph) Blocks() []*Block {
	out := make([]*Block, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.blocks[id])
	}
	return out
}

// Start returns the ID of the Start block, or NoBlock.
func (g *Graph) Start() BlockID {
	return g.start
}

// Remove deletes a block from the arena. The block must already be unlinked;
// Remove does not touch its neighbours.
func (g *Graph) Remove(id BlockID) {
	if _, ok := g.blocks[id]; !ok {
		return
	}
	delete(g.blocks, id)
	if i := slices.Index(g.order, id); i >= 0 {
		g.order = slices.Delete(g.order, i, i+1)
	}
	if g.start == id {
		g.start = NoBlock
	}
}

// SetField assigns a field value, checking the field exists on the block's
// kind and that fixed-choice fields receive one of their choices.
func (g *Graph) SetField(id BlockID, name, value string) error {
	b := g.Get(id)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	spec, ok := b.Kind.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, b.Kind, name)
	}
	if len(spec.Choices) > 0 && !slices.Contains(spec.Choices, value) {
		return fmt.Errorf("%w: %s.%s = %q (want one of %v)", ErrInvalidChoice, b.Kind, name, value, spec.Choices)
	}
	b.Fields[name] = value
	return nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		blocks: make(map[BlockID]*Block, len(g.blocks)),
		order:  slices.Clone(g.order),
		nextID: g.nextID,
		start:  g.start,
	}
	for id, b := range g.blocks {
		c.blocks[id] = b.clone()
	}
	return c
}

// ScenePos maps a block's position into scene coordinates by summing the
// positions of its container ancestors.
func (g *Graph) ScenePos(id BlockID) geom.Vec {
	var p geom.Vec
	for b := g.Get(id); b != nil; b = g.Get(b.Parent) {
		p = p.Add(b.Pos)
	}
	return p
}

// SceneRect returns a block's frame in scene coordinates.
func (g *Graph) SceneRect(id BlockID) geom.Rect {
	b := g.Get(id)
	if b == nil {
		return geom.Rect{}
	}
	return geom.RectAt(g.ScenePos(id), b.Width, b.Height)
}

// SlotRect returns the interior slot rectangle of a container in scene
// coordinates. Its height tracks the container's current height.
func (g *Graph) SlotRect(id BlockID) geom.Rect {
	return g.SceneRect(id).Inset(SlotInsetX, SlotInsetY, SlotInsetX, SlotInsetY)
}

// Head walks prev links back to the first block of id's chain.
func (g *Graph) Head(id BlockID) BlockID {
	seen := map[BlockID]bool{}
	for {
		b := g.Get(id)
		if b == nil || b.Prev == NoBlock || seen[id] {
			return id
		}
		seen[id] = true
		id = b.Prev
	}
}

// Tail walks next links forward to the last block of id's chain.
func (g *Graph) Tail(id BlockID) BlockID {
	seen := map[BlockID]bool{}
	for {
		b := g.Get(id)
		if b == nil || b.Next == NoBlock || seen[id] {
			return id
		}
		seen[id] = true
		id = b.Next
	}
}

// Chain returns the blocks from id through the end of its sequence.
func (g *Graph) Chain(id BlockID) []BlockID {
	var out []BlockID
	seen := map[BlockID]bool{}
	for b := g.Get(id); b != nil && !seen[b.ID]; b = g.Get(b.Next) {
		seen[b.ID] = true
		out = append(out, b.ID)
	}
	return out
}

// Connected returns every block transitively reachable from id via sequence
// links and containment in either direction, including id itself.
func (g *Graph) Connected(id BlockID) map[BlockID]bool {
	seen := map[BlockID]bool{}
	stack := []BlockID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := g.Get(cur)
		if b == nil || seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, b.Next, b.Prev, b.Parent)
		stack = append(stack, b.Children...)
	}
	return seen
}

// Descendants returns the blocks nested inside a container at any depth.
func (g *Graph) Descendants(id BlockID) []BlockID {
	var out []BlockID
	b := g.Get(id)
	if b == nil {
		return nil
	}
	for _, c := range b.Children {
		out = append(out, c)
		out = append(out, g.Descendants(c)...)
	}
	return out
}

// Ancestors returns the container chain above id, innermost first.
func (g *Graph) Ancestors(id BlockID) []BlockID {
	var out []BlockID
	seen := map[BlockID]bool{id: true}
	for b := g.Get(id); b != nil && b.Parent != NoBlock && !seen[b.Parent]; b = g.Get(b.Parent) {
		seen[b.Parent] = true
		out = append(out, b.Parent)
	}
	return out
}
