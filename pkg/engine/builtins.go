package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chazu/blockstudio/pkg/editor"
	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
	"github.com/chazu/blockstudio/pkg/snap"
	zygo "github.com/glycerine/zygomys/zygo"
)

// Blocks created without :at are parked in a staging column to the right of
// the workspace, one under another, so they never snap by accident.
const (
	StagingX   = 1000.0
	stagingGap = 20.0
)

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpBlockRef is the value a script holds for a block it created.
type sexpBlockRef struct {
	id   graph.BlockID
	kind graph.Kind
}

func (r *sexpBlockRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(block-ref %d %s)", r.id, r.kind)
}

func (r *sexpBlockRef) Type() *zygo.RegisteredType { return nil }

// sexpPos is a point on the workspace.
type sexpPos struct {
	v geom.Vec
}

func (p *sexpPos) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pos %g %g)", p.v.X, p.v.Y)
}

func (p *sexpPos) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a mixed positional and keyword argument list. Keyword order
// is kept so field assignments apply in the order they were written.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		val := zygo.Sexp(zygo.SexpNull)
		if i+1 < len(args) {
			i++
			val = args[i]
		}
		if _, dup := result.kw[name]; !dup {
			result.order = append(result.order, name)
		}
		result.kw[name] = val
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts :name or "name".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if name, ok := isKW(s); ok {
		return name, nil
	}
	return str.S, nil
}

// toFieldValue renders a script value as field text. Fields are text in the
// block model, so numbers are formatted and keywords lose their marker.
func toFieldValue(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *zygo.SexpStr:
		if name, ok := isKW(s); ok {
			return name, nil
		}
		return v.S, nil
	case *zygo.SexpInt:
		return strconv.FormatInt(v.Val, 10), nil
	case *zygo.SexpFloat:
		return strconv.FormatFloat(v.Val, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("expected string or number, got %T (%s)", s, s.SexpString(nil))
}

func toBlockRef(s zygo.Sexp) (*sexpBlockRef, error) {
	if r, ok := s.(*sexpBlockRef); ok {
		return r, nil
	}
	return nil, fmt.Errorf("expected block, got %T (%s)", s, s.SexpString(nil))
}

// toPos accepts (pos x y) or a two-element list or array.
func toPos(s zygo.Sexp) (geom.Vec, error) {
	if p, ok := s.(*sexpPos); ok {
		return p.v, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 2 {
		return geom.Vec{}, fmt.Errorf("expected position, got %T (%s)", s, s.SexpString(nil))
	}
	x, err := toFloat64(items[0])
	if err != nil {
		return geom.Vec{}, err
	}
	y, err := toFloat64(items[1])
	if err != nil {
		return geom.Vec{}, err
	}
	return geom.V(x, y), nil
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Script state
// ---------------------------------------------------------------------------

// script is the per-evaluation state shared by the builtins.
type script struct {
	s        *editor.Session
	stagingY float64
}

func (sc *script) ref(id graph.BlockID) *sexpBlockRef {
	return &sexpBlockRef{id: id, kind: sc.s.Graph().Get(id).Kind}
}

// create adds a block, at pos when given and in the staging column otherwise.
func (sc *script) create(kind graph.Kind, pos *geom.Vec) (graph.BlockID, error) {
	p := geom.V(StagingX, sc.stagingY)
	if pos != nil {
		p = *pos
	}
	id, err := sc.s.CreateBlock(kind, p)
	if err != nil {
		return graph.NoBlock, err
	}
	if pos == nil {
		sc.stagingY += sc.s.Graph().Get(id).Height + stagingGap
	}
	return id, nil
}

// dropOnto moves the chain holding subject with a full grab, drag and
// release so that it lands in relation rel to target, and fails when the
// matcher picks anything else.
func (sc *script) dropOnto(subject, target graph.BlockID, rel snap.Relation) error {
	g := sc.s.Graph()
	if !g.Has(subject) || !g.Has(target) {
		return editor.ErrUnknownBlock
	}
	head := g.Head(subject)
	tr := g.SceneRect(target)

	// A contained target sits inside its parent's slot. Pull the drop just
	// left of the slot so the contain rule does not claim it.
	dx := 0.0
	if g.Get(target).Parent != graph.NoBlock {
		dx = -(graph.ChildInsetX - graph.SlotInsetX + 1)
	}

	var p geom.Vec
	switch rel {
	case snap.Contain:
		p = g.SlotRect(target).TopLeft().Add(geom.V(graph.ChildInsetX-graph.SlotInsetX, 0))
	case snap.AttachBelow:
		p = geom.V(tr.Left()+dx, tr.Bottom())
	case snap.AttachAbove:
		h := 0.0
		for _, id := range g.Chain(head) {
			h += g.Get(id).Height
		}
		p = geom.V(tr.Left()+dx, tr.Top()-h)
	default:
		return fmt.Errorf("unsupported relation %s", rel)
	}

	out, err := sc.s.DropAt(head, p)
	if err != nil {
		return err
	}
	if out.Candidate.Relation != rel || out.Candidate.Target != target {
		return fmt.Errorf("block %d did not %s block %d (matched %s %d)",
			subject, rel, target, out.Candidate.Relation, out.Candidate.Target)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtin is the shape zygomys expects for a Go function.
type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the block-scripting functions into env. Every
// function drives s through its public operations, so scripts obey the same
// snapping rules as a pointer.
func registerBuiltins(env *zygo.Zlisp, s *editor.Session) {
	sc := &script{s: s}

	env.AddFunction("pos", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pos requires x and y")
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pos: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pos: y: %w", err)
		}
		return &sexpPos{v: geom.V(x, y)}, nil
	})

	// (start) or (start :at (pos x y))
	env.AddFunction("start", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return sc.newBlock("start", graph.KindStart, parseArgs(args))
	})

	// (block :digital-write :pin 13 :value :HIGH :at (pos 0 40))
	env.AddFunction("block", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("block requires a kind")
		}
		kindName, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block: kind: %w", err)
		}
		kind, err := graph.ParseKind(kindName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block: %w", err)
		}
		return sc.newBlock("block", kind, parseArgs(args[1:]))
	})

	// (set-field ref :name value ...)
	env.AddFunction("set_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("set-field requires a block")
		}
		r, err := toBlockRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-field: %w", err)
		}
		a := parseArgs(args[1:])
		if len(a.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("set-field: unexpected positional argument %s", a.positional[0].SexpString(nil))
		}
		if err := sc.setFields(r.id, a, nil); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-field: %w", err)
		}
		return r, nil
	})

	// (get-field ref :name)
	env.AddFunction("get_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("get-field requires a block and a field name")
		}
		r, err := toBlockRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("get-field: %w", err)
		}
		fname, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("get-field: %w", err)
		}
		b := s.Graph().Get(r.id)
		if b == nil {
			return zygo.SexpNull, fmt.Errorf("get-field: %w", editor.ErrUnknownBlock)
		}
		if _, ok := b.Kind.Field(fname); !ok {
			return zygo.SexpNull, fmt.Errorf("get-field: %s has no field %q: %w", b.Kind, fname, graph.ErrUnknownField)
		}
		return &zygo.SexpStr{S: b.Field(fname)}, nil
	})

	env.AddFunction("attach_below", sc.relate("attach-below", snap.AttachBelow))
	env.AddFunction("attach_above", sc.relate("attach-above", snap.AttachAbove))
	env.AddFunction("put_inside", sc.relate("put-inside", snap.Contain))

	// (chain a b c) attaches each block below the one before it.
	env.AddFunction("chain", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		refs, err := blockRefs("chain", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(refs) == 0 {
			return zygo.SexpNull, fmt.Errorf("chain requires at least one block")
		}
		for i := 1; i < len(refs); i++ {
			if err := sc.dropOnto(refs[i].id, refs[i-1].id, snap.AttachBelow); err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: %w", err)
			}
		}
		return refs[0], nil
	})

	// (inside c a b ...) puts each block into c, in order.
	env.AddFunction("inside", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		refs, err := blockRefs("inside", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(refs) == 0 {
			return zygo.SexpNull, fmt.Errorf("inside requires a container")
		}
		for _, r := range refs[1:] {
			if err := sc.dropOnto(r.id, refs[0].id, snap.Contain); err != nil {
				return zygo.SexpNull, fmt.Errorf("inside: %w", err)
			}
		}
		return refs[0], nil
	})

	// (drag ref (pos x y)) or (drag ref x y) returns the relation it snapped
	// into as a keyword name, or "none".
	env.AddFunction("drag", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("drag requires a block and a position")
		}
		r, err := toBlockRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("drag: %w", err)
		}
		p, err := dragTarget(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("drag: %w", err)
		}
		out, err := s.DropAt(r.id, p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("drag: %w", err)
		}
		return &zygo.SexpStr{S: out.Candidate.Relation.String()}, nil
	})

	env.AddFunction("detach", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("detach requires a block")
		}
		r, err := toBlockRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("detach: %w", err)
		}
		if err := s.Detach(r.id); err != nil {
			return zygo.SexpNull, fmt.Errorf("detach: %w", err)
		}
		return r, nil
	})

	env.AddFunction("delete", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("delete requires a block")
		}
		r, err := toBlockRef(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("delete: %w", err)
		}
		if err := s.Delete(r.id); err != nil {
			return zygo.SexpNull, fmt.Errorf("delete: %w", err)
		}
		return zygo.SexpNull, nil
	})
}

// newBlock implements start and block: :at places the block, every other
// keyword sets a field.
func (sc *script) newBlock(fn string, kind graph.Kind, a kwArgs) (zygo.Sexp, error) {
	if len(a.positional) > 0 {
		return zygo.SexpNull, fmt.Errorf("%s: unexpected positional argument %s", fn, a.positional[0].SexpString(nil))
	}
	var pos *geom.Vec
	if at, ok := a.kw["at"]; ok {
		p, err := toPos(at)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: at: %w", fn, err)
		}
		pos = &p
	}
	// Validate before creating so a bad field leaves no stray block.
	for _, f := range a.order {
		if f == "at" {
			continue
		}
		spec, ok := kind.Field(f)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("%s: %s has no field %q: %w", fn, kind, f, graph.ErrUnknownField)
		}
		v, err := toFieldValue(a.kw[f])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %s: %w", fn, f, err)
		}
		if len(spec.Choices) > 0 && !slices.Contains(spec.Choices, v) {
			return zygo.SexpNull, fmt.Errorf("%s: %s %q: %w", fn, f, v, graph.ErrInvalidChoice)
		}
	}
	id, err := sc.create(kind, pos)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	if err := sc.setFields(id, a, map[string]bool{"at": true}); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	return sc.ref(id), nil
}

func (sc *script) setFields(id graph.BlockID, a kwArgs, skip map[string]bool) error {
	for _, f := range a.order {
		if skip[f] {
			continue
		}
		v, err := toFieldValue(a.kw[f])
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		if err := sc.s.SetField(id, f, v); err != nil {
			return err
		}
	}
	return nil
}

// relate builds the two-argument attach and put-inside builtins.
func (sc *script) relate(fn string, rel snap.Relation) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires two blocks", fn)
		}
		refs, err := blockRefs(fn, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		// put-inside names the container first; the attach forms name the
		// moving block first.
		subject, target := refs[0], refs[1]
		if rel == snap.Contain {
			subject, target = refs[1], refs[0]
		}
		if err := sc.dropOnto(subject.id, target.id, rel); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		return subject, nil
	}
}

// dragTarget accepts either a single position or bare x and y.
func dragTarget(args []zygo.Sexp) (geom.Vec, error) {
	if len(args) == 1 {
		return toPos(args[0])
	}
	x, err := toFloat64(args[0])
	if err != nil {
		return geom.Vec{}, err
	}
	y, err := toFloat64(args[1])
	if err != nil {
		return geom.Vec{}, err
	}
	return geom.V(x, y), nil
}

func blockRefs(fn string, args []zygo.Sexp) ([]*sexpBlockRef, error) {
	refs := make([]*sexpBlockRef, 0, len(args))
	for i, a := range args {
		r, err := toBlockRef(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		refs = append(refs, r)
	}
	return refs, nil
}
