package graph

import (
	"maps"
	"slices"

	"github.com/chazu/blockstudio/pkg/geom"
)

// BlockID identifies a block within its graph. IDs are assigned sequentially
// and never reused.
type BlockID uint32

// NoBlock is the zero BlockID, used for absent links.
const NoBlock BlockID = 0

// Block is one statement, declaration, or control construct.
//
// Pos is relative to the parent container when Parent is set, and a scene
// position otherwise.
type Block struct {
	ID     BlockID
	Kind   Kind
	Fields map[string]string

	Pos    geom.Vec
	Width  float64
	Height float64

	Next   BlockID
	Prev   BlockID
	Parent BlockID

	// Children lists contained blocks in order. Only container kinds have
	// children.
	Children []BlockID

	// Movable is false while the block sits inside a container.
	Movable bool
}

// IsContainer reports whether the block owns a child list.
func (b *Block) IsContainer() bool {
	return b.Kind.IsContainer()
}

// Field returns a field value.
func (b *Block) Field(name string) string {
	return b.Fields[name]
}

// Standalone reports whether the block has no sequence or containment links.
func (b *Block) Standalone() bool {
	return b.Next == NoBlock && b.Prev == NoBlock && b.Parent == NoBlock
}

func (b *Block) clone() *Block {
	c := *b
	c.Fields = maps.Clone(b.Fields)
	c.Children = slices.Clone(b.Children)
	return &c
}
