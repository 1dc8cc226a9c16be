package graph

import "math"

const epsilon = 1e-9

// ContentHeight returns the sum of the heights of a container's children.
func (g *Graph) ContentHeight(id BlockID) float64 {
	var h float64
	if b := g.Get(id); b != nil {
		for _, c := range b.Children {
			if cb := g.Get(c); cb != nil {
				h += cb.Height
			}
		}
	}
	return h
}

// validateHeights checks that every container is exactly as tall as its
// chrome plus its children.
func validateHeights(g *Graph) []InvariantError {
	var errs []InvariantError
	for _, b := range g.Blocks() {
		if !b.IsContainer() {
			continue
		}
		want := ContainerChrome + g.ContentHeight(b.ID)
		if math.Abs(b.Height-want) > epsilon {
			errs = append(errs, invariant(b.ID, "container height is %.1f, want %.1f", b.Height, want))
		}
	}
	return errs
}
