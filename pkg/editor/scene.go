package editor

import (
	"maps"
	"slices"

	"github.com/chazu/blockstudio/pkg/graph"
)

// BlockView is a flattened, scene-space snapshot of one block for rendering.
type BlockView struct {
	ID          graph.BlockID     `json:"id"`
	Kind        string            `json:"kind"`
	Label       string            `json:"label"`
	Fields      map[string]string `json:"fields"`
	X           float64           `json:"x"`
	Y           float64           `json:"y"`
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
	Next        graph.BlockID     `json:"next,omitempty"`
	Prev        graph.BlockID     `json:"prev,omitempty"`
	Parent      graph.BlockID     `json:"parent,omitempty"`
	Children    []graph.BlockID   `json:"children,omitempty"`
	Movable     bool              `json:"movable"`
	Highlighted bool              `json:"highlighted"`
}

// Scene returns a view of every block in creation order, with the pending
// snap target marked as highlighted.
func (s *Session) Scene() []BlockView {
	hl := s.Highlight()
	blocks := s.g.Blocks()
	out := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		p := s.g.ScenePos(b.ID)
		out = append(out, BlockView{
			ID:          b.ID,
			Kind:        b.Kind.String(),
			Label:       b.Kind.Label(),
			Fields:      maps.Clone(b.Fields),
			X:           p.X,
			Y:           p.Y,
			Width:       b.Width,
			Height:      b.Height,
			Next:        b.Next,
			Prev:        b.Prev,
			Parent:      b.Parent,
			Children:    slices.Clone(b.Children),
			Movable:     b.Movable,
			Highlighted: hl.Valid() && hl.Target == b.ID,
		})
	}
	return out
}
