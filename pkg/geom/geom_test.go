package geom

import "testing"

func TestRectAt(t *testing.T) {
	r := RectAt(V(10, 20), 160, 40)
	if r.Top() != 20 || r.Bottom() != 60 {
		t.Errorf("vertical extent = [%v, %v], want [20, 60]", r.Top(), r.Bottom())
	}
	if r.Left() != 10 || r.Right() != 170 {
		t.Errorf("horizontal extent = [%v, %v], want [10, 170]", r.Left(), r.Right())
	}
	if r.Width() != 160 || r.Height() != 40 {
		t.Errorf("size = %vx%v, want 160x40", r.Width(), r.Height())
	}
}

func TestContainsIncludesBorder(t *testing.T) {
	r := RectAt(V(0, 0), 10, 10)
	tests := []struct {
		p    Vec
		want bool
	}{
		{V(5, 5), true},
		{V(0, 0), true},
		{V(10, 10), true},
		{V(10.01, 5), false},
		{V(-1, 5), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	a := RectAt(V(0, 0), 100, 40)
	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"identical", a, true},
		{"partial", RectAt(V(50, 20), 100, 40), true},
		{"touching edge", RectAt(V(0, 40), 100, 40), true},
		{"below", RectAt(V(0, 41), 100, 40), false},
		{"right", RectAt(V(101, 0), 100, 40), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps is not symmetric")
			}
		})
	}
}

func TestInsetCollapses(t *testing.T) {
	r := RectAt(V(0, 0), 180, 80).Inset(10, 30, 10, 30)
	if r.Left() != 10 || r.Top() != 30 || r.Width() != 160 || r.Height() != 20 {
		t.Errorf("inset = %+v", r)
	}

	tiny := RectAt(V(0, 0), 10, 10).Inset(8, 8, 8, 8)
	if tiny.Width() != 0 || tiny.Height() != 0 {
		t.Errorf("over-inset rect should collapse, got %vx%v", tiny.Width(), tiny.Height())
	}
}

func TestUnionAndTranslate(t *testing.T) {
	u := RectAt(V(0, 0), 10, 10).Union(RectAt(V(20, 5), 10, 10))
	if u.Left() != 0 || u.Top() != 0 || u.Right() != 30 || u.Bottom() != 15 {
		t.Errorf("union = %+v", u)
	}
	m := u.Translate(V(5, -5))
	if m.Left() != 5 || m.Top() != -5 {
		t.Errorf("translate = %+v", m)
	}
}

func TestNear(t *testing.T) {
	if !Near(100, 119.9, 20) {
		t.Error("119.9 should be near 100 with threshold 20")
	}
	if Near(100, 120, 20) {
		t.Error("threshold is exclusive")
	}
}
