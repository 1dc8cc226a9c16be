// Package geom provides the 2D scene geometry used by the block editor.
// Rectangles are sdfx boxes. The scene's Y axis grows downward, so a
// rectangle's Min is its top-left corner and Max its bottom-right.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Vec is a point or offset in scene units.
type Vec = v2.Vec

// V is shorthand for Vec{X: x, Y: y}.
func V(x, y float64) Vec {
	return Vec{X: x, Y: y}
}

// Rect is an axis-aligned rectangle in scene units.
type Rect sdf.Box2

// RectAt returns the rectangle with top-left corner pos and the given size.
func RectAt(pos Vec, w, h float64) Rect {
	return Rect{Min: pos, Max: pos.Add(Vec{X: w, Y: h})}
}

func (r Rect) Top() float64    { return r.Min.Y }
func (r Rect) Bottom() float64 { return r.Max.Y }
func (r Rect) Left() float64   { return r.Min.X }
func (r Rect) Right() float64  { return r.Max.X }

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 {
	return sdf.Box2(r).Size().X
}

// Height returns the vertical extent of r.
func (r Rect) Height() float64 {
	return sdf.Box2(r).Size().Y
}

// TopLeft returns the anchor point of r.
func (r Rect) TopLeft() Vec {
	return r.Min
}

// Contains reports whether p lies inside r. Points on the border count as
// inside.
func (r Rect) Contains(p Vec) bool {
	return sdf.Box2(r).Contains(p)
}

// Overlaps reports whether r and o share at least one point. Rectangles
// that only touch along an edge overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Inset shrinks r by the given margins. Margins larger than the rectangle
// collapse it to a zero-size rectangle rather than inverting it.
func (r Rect) Inset(left, top, right, bottom float64) Rect {
	out := Rect{
		Min: Vec{X: r.Min.X + left, Y: r.Min.Y + top},
		Max: Vec{X: r.Max.X - right, Y: r.Max.Y - bottom},
	}
	if out.Max.X < out.Min.X {
		out.Max.X = out.Min.X
	}
	if out.Max.Y < out.Min.Y {
		out.Max.Y = out.Min.Y
	}
	return out
}

// Translate moves r by d.
func (r Rect) Translate(d Vec) Rect {
	return Rect{Min: r.Min.Add(d), Max: r.Max.Add(d)}
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Vec{X: math.Min(r.Min.X, o.Min.X), Y: math.Min(r.Min.Y, o.Min.Y)},
		Max: Vec{X: math.Max(r.Max.X, o.Max.X), Y: math.Max(r.Max.Y, o.Max.Y)},
	}
}

// Near reports whether a and b differ by strictly less than threshold.
func Near(a, b, threshold float64) bool {
	return math.Abs(a-b) < threshold
}
