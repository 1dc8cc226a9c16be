package engine

import (
	"slices"
	"strings"
	"testing"

	"github.com/chazu/blockstudio/pkg/codegen"
	"github.com/chazu/blockstudio/pkg/editor"
	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(block :delay)`, `(block "__kw_delay")`},
		{"multiple keywords", `(block :delay :ms 500)`, `(block "__kw_delay" "__kw_ms" 500)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"escaped quote in string", `"a \" :b"`, `"a \" :b"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(attach-below a b)`, `(attach_below a b)`},
		{"hyphen in keyword preserved", `:digital-write`, `"__kw_digital-write"`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative number preserved", `(pos -5 10)`, `(pos -5 10)`},
		{"comment converted to // style", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evaluate runs source and fails the test on any error.
func evaluate(t *testing.T, source string) *editor.Session {
	t.Helper()
	s, evalErrs, err := NewEngine(editor.WithStrictChecks()).Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if errs := graph.Validate(s.Graph()); len(errs) > 0 {
		t.Fatalf("invalid graph: %v", errs)
	}
	return s
}

// evaluateErr runs source and returns its eval errors, failing when there
// are none.
func evaluateErr(t *testing.T, source string) []EvalError {
	t.Helper()
	s, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatalf("expected eval errors, got session with %d blocks", s.Graph().Len())
	}
	return evalErrs
}

// ids returns block IDs in creation order, which is script order.
func ids(s *editor.Session) []graph.BlockID {
	return s.Graph().IDs()
}

func TestChainProgram(t *testing.T) {
	s := evaluate(t, `
(def s (start :at (pos 0 0)))
(def w (block :digital-write :pin 13 :value :HIGH))
(chain s w)
`)
	g := s.Graph()
	id := ids(s)
	if g.Get(id[0]).Next != id[1] {
		t.Fatalf("start.next = %d, want %d", g.Get(id[0]).Next, id[1])
	}
	if got := g.ScenePos(id[1]); got != geom.V(0, 40) {
		t.Errorf("write at %v, want (0,40)", got)
	}
	code, err := codegen.GenerateProgram(g)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if code != "digitalWrite(13, HIGH);" {
		t.Errorf("code = %q", code)
	}
}

func TestLoopProgram(t *testing.T) {
	s := evaluate(t, `
;; blink forever-ish
(def s (start))
(def loop (block :for-loop :count 3))
(inside loop
  (block :digital-write :pin 13 :value "HIGH")
  (block :delay :ms 500))
(chain s loop (block :serial-write :value 1))
`)
	code, err := codegen.GenerateProgram(s.Graph())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := strings.Join([]string{
		"for (int i0 = 0; i0 < 3; ++i0) {",
		"  digitalWrite(13, HIGH);",
		"  delay(500);",
		"}",
		"Serial.println(1);",
	}, "\n")
	if code != want {
		t.Errorf("code =\n%s\nwant\n%s", code, want)
	}
}

func TestNestedPutInside(t *testing.T) {
	s := evaluate(t, `
(def outer (block :for-loop :count 2))
(def inner (block :while-loop :left 1 :cmp "<" :right 2))
(def d (block :delay))
(put-inside inner d)
(put-inside outer inner)
`)
	g := s.Graph()
	id := ids(s)
	outer, inner, d := g.Get(id[0]), g.Get(id[1]), g.Get(id[2])
	if !slices.Equal(outer.Children, []graph.BlockID{inner.ID}) {
		t.Errorf("outer children = %v", outer.Children)
	}
	if !slices.Equal(inner.Children, []graph.BlockID{d.ID}) {
		t.Errorf("inner children = %v", inner.Children)
	}
	if want := graph.ContainerChrome*2 + graph.BlockHeight; outer.Height != want {
		t.Errorf("outer height = %v, want %v", outer.Height, want)
	}
}

func TestAttachBelowContainedBlock(t *testing.T) {
	s := evaluate(t, `
(def loop (block :for-loop))
(def a (block :delay))
(def b (block :serial-write :value 7))
(put-inside loop a)
(attach-below b a)
`)
	g := s.Graph()
	id := ids(s)
	if got := g.Get(id[0]).Children; !slices.Equal(got, []graph.BlockID{id[1], id[2]}) {
		t.Errorf("children = %v", got)
	}
	if got := g.Get(id[2]).Pos; got != geom.V(graph.ChildInsetX, graph.ChildInsetY+graph.BlockHeight) {
		t.Errorf("b local position = %v", got)
	}
}

func TestAttachAbove(t *testing.T) {
	s := evaluate(t, `
(def w (block :serial-write :value 1 :at (pos 0 200)))
(def d (block :delay))
(attach-above d w)
`)
	g := s.Graph()
	id := ids(s)
	if g.Get(id[1]).Next != id[0] {
		t.Fatalf("delay.next = %d, want %d", g.Get(id[1]).Next, id[0])
	}
	if got := g.ScenePos(id[1]); got != geom.V(0, 160) {
		t.Errorf("delay at %v, want (0,160)", got)
	}
}

func TestFieldBuiltins(t *testing.T) {
	s := evaluate(t, `
(def d (block :delay))
(set-field d :ms 250)
(def w (block :digital-write))
(set-field w :pin "LED" :value :HIGH)
`)
	g := s.Graph()
	id := ids(s)
	if got := g.Get(id[0]).Field("ms"); got != "250" {
		t.Errorf("ms = %q", got)
	}
	if got := g.Get(id[1]).Field("pin"); got != "LED" {
		t.Errorf("pin = %q", got)
	}
	if got := g.Get(id[1]).Field("value"); got != "HIGH" {
		t.Errorf("value = %q", got)
	}
}

func TestDragDetachDelete(t *testing.T) {
	s := evaluate(t, `
(def s (start :at (pos 0 0)))
(def a (block :delay))
(def b (block :delay))
(chain s a b)
(detach a)
(drag b 300 200)
(delete s)
`)
	// Script order fixes the IDs: s=1, a=2, b=3.
	g := s.Graph()
	if g.Len() != 2 || g.Has(1) {
		t.Fatalf("expected start deleted, have %v", g.IDs())
	}
	a, b := g.Get(2), g.Get(3)
	if a == nil || b == nil {
		t.Fatalf("a and b should survive, have %v", g.IDs())
	}
	if a.Next != graph.NoBlock || b.Prev != graph.NoBlock {
		t.Errorf("a and b should be standalone: a.next=%d b.prev=%d", a.Next, b.Prev)
	}
	if got := g.ScenePos(b.ID); got != geom.V(300, 200) {
		t.Errorf("b at %v, want (300,200)", got)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown kind", `(block :bogus)`, "bogus"},
		{"unknown field", `(block :delay :color 3)`, "color"},
		{"invalid choice", `(block :digital-write :value :MEDIUM)`, "MEDIUM"},
		{"nothing above start", `(def s (start :at (pos 0 0))) (attach-above (block :delay) s)`, "did not"},
		{"start cannot be contained", `(put-inside (block :for-loop) (start))`, "did not"},
		{"bad position", `(block :delay :at 5)`, "position"},
		{"not a block", `(detach 5)`, "expected block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evaluateErr(t, tt.source)
			if !strings.Contains(errs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.want)
			}
		})
	}
}

func TestFailedBlockLeavesNoStrayBlock(t *testing.T) {
	sc := &script{s: editor.New()}
	a := parseArgs([]zygo.Sexp{&zygo.SexpStr{S: kwPrefix + "color"}, &zygo.SexpStr{S: "red"}})
	if _, err := sc.newBlock("block", graph.KindDelay, a); err == nil {
		t.Fatal("expected error")
	}
	if n := sc.s.Graph().Len(); n != 0 {
		t.Errorf("expected no blocks, got %d", n)
	}
}
