package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/chazu/blockstudio/internal/config"
	"github.com/chazu/blockstudio/internal/logging"
	"github.com/chazu/blockstudio/pkg/graph"
	"github.com/chazu/blockstudio/pkg/toolchain"
)

const blinkScript = `
(def s (start :at (pos 0 0)))
(def loop (block :for-loop :count 3))
(inside loop
  (block :digital-write :pin 13 :value :HIGH)
  (block :delay :ms 250)
  (block :digital-write :pin 13 :value :LOW)
  (block :delay :ms 250))
(chain s loop)
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.SketchDir = t.TempDir()
	app, err := NewApp(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

// TestE2EBlinkScript exercises the full pipeline: script -> engine ->
// session -> codegen -> sketch. This is the same path the Wails bindings
// take, but without the Wails runtime.
func TestE2EBlinkScript(t *testing.T) {
	app := newTestApp(t)

	res := app.LoadScript(blinkScript)
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if len(res.Scene.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(res.Scene.Blocks))
	}

	gen := app.Generate()
	if gen.Error != "" {
		t.Fatalf("generate: %s", gen.Error)
	}
	want := strings.Join([]string{
		"for (int i0 = 0; i0 < 3; ++i0) {",
		"  digitalWrite(13, HIGH);",
		"  delay(250);",
		"  digitalWrite(13, LOW);",
		"  delay(250);",
		"}",
	}, "\n")
	if gen.Code != want {
		t.Errorf("code =\n%s\nwant\n%s", gen.Code, want)
	}
	for _, s := range []string{"void setup() {", "Serial.begin(9600);", "    delay(250);", "void loop() {}"} {
		if !strings.Contains(gen.Sketch, s) {
			t.Errorf("sketch missing %q:\n%s", s, gen.Sketch)
		}
	}
}

func TestE2EEmptyScript(t *testing.T) {
	app := newTestApp(t)
	for _, src := range []string{"", "   \n\t ", ";; just a comment\n"} {
		res := app.LoadScript(src)
		if len(res.Errors) != 0 {
			t.Errorf("LoadScript(%q): unexpected errors %v", src, res.Errors)
		}
		if len(res.Scene.Blocks) != 0 {
			t.Errorf("LoadScript(%q): expected empty scene", src)
		}
	}
}

func TestE2EScriptErrorKeepsWorkspace(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.AddBlock("start", 0, 0); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	res := app.LoadScript("(start)\n(block :bogus)")
	if len(res.Errors) == 0 {
		t.Fatal("expected errors")
	}
	if len(res.Scene.Blocks) != 1 {
		t.Errorf("workspace replaced on error: %d blocks", len(res.Scene.Blocks))
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	res := app.LoadScript("(chain (start)\n(block :delay")
	if len(res.Errors) == 0 {
		t.Fatal("expected syntax error")
	}
	if res.Errors[0].Message == "" {
		t.Error("error message should not be empty")
	}
}

func TestE2EGesture(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.AddBlock("start", 0, 0); err != nil {
		t.Fatal(err)
	}
	scene, err := app.AddBlock("delay", 300, 300)
	if err != nil {
		t.Fatal(err)
	}
	start, delay := scene.Blocks[0].ID, scene.Blocks[1].ID

	if _, err := app.Grab(delay, 310, 310); err != nil {
		t.Fatalf("Grab: %v", err)
	}
	scene, err = app.Drag(delay, 10, 50)
	if err != nil {
		t.Fatalf("Drag: %v", err)
	}
	if scene.State != "dragging" || scene.Highlight != start || scene.Relation != "attach-below" {
		t.Errorf("during drag: state=%s highlight=%d relation=%s", scene.State, scene.Highlight, scene.Relation)
	}

	scene, err = app.Release(delay)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if scene.Blocks[0].Next != delay {
		t.Errorf("start.next = %d, want %d", scene.Blocks[0].Next, delay)
	}
	if scene.State != "idle" || scene.Highlight != graph.NoBlock {
		t.Errorf("after release: state=%s highlight=%d", scene.State, scene.Highlight)
	}

	if gen := app.Generate(); gen.Code != "delay(1000);" {
		t.Errorf("code = %q (error %q)", gen.Code, gen.Error)
	}
}

func TestE2EGestureErrors(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.Grab(42, 0, 0); err == nil {
		t.Error("expected error grabbing a missing block")
	}
	if _, err := app.Release(42); err == nil {
		t.Error("expected error releasing without a grab")
	}
	if _, err := app.AddBlock("teleport", 0, 0); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestE2EGenerateNamesFailingBlock(t *testing.T) {
	app := newTestApp(t)
	res := app.LoadScript(`(chain (start) (block :serial-write :value "y"))`)
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	gen := app.Generate()
	if !strings.Contains(gen.Error, "is not a declared variable") {
		t.Fatalf("error = %q", gen.Error)
	}
	if gen.Block != res.Scene.Blocks[1].ID {
		t.Errorf("block = %d, want %d", gen.Block, res.Scene.Blocks[1].ID)
	}
}

func TestE2EGenerateWithoutStart(t *testing.T) {
	app := newTestApp(t)
	if gen := app.Generate(); !strings.Contains(gen.Error, "no start block") {
		t.Errorf("error = %q", gen.Error)
	}
}

func TestE2ESetFieldAndDelete(t *testing.T) {
	app := newTestApp(t)
	res := app.LoadScript(`(chain (start :at (pos 0 0)) (block :delay) (block :serial-write :value 1))`)
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	delay := res.Scene.Blocks[1].ID
	if _, err := app.SetField(delay, "ms", "20"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if _, err := app.SetField(delay, "speed", "1"); err == nil {
		t.Error("expected error for unknown field")
	}
	if gen := app.Generate(); gen.Code != "delay(20);\nSerial.println(1);" {
		t.Errorf("code = %q", gen.Code)
	}

	scene, err := app.Delete(delay)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(scene.Blocks) != 2 {
		t.Errorf("expected 2 blocks, got %d", len(scene.Blocks))
	}
	if gen := app.Generate(); gen.Code != "Serial.println(1);" {
		t.Errorf("code after delete = %q", gen.Code)
	}
}

func TestE2ESetPinMode(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.SetPinMode(13, "OUTPUT"); err != nil {
		t.Fatalf("SetPinMode: %v", err)
	}
	if _, err := app.SetPinMode(13, "SIDEWAYS"); err == nil {
		t.Error("expected error for unknown mode")
	}
	app.LoadScript(`(start)`)
	gen := app.Generate()
	if !strings.Contains(gen.Sketch, "pinMode(13, OUTPUT);") {
		t.Errorf("sketch missing pin 13 output:\n%s", gen.Sketch)
	}
}

func TestE2EUpload(t *testing.T) {
	app := newTestApp(t)
	var calls [][]string
	app.newRunner = func(fqbn, port string) *toolchain.Runner {
		return toolchain.NewRunner("", fqbn, port, nil).WithRunFunc(
			func(ctx context.Context, name string, args ...string) (toolchain.Output, error) {
				calls = append(calls, args)
				return toolchain.Output{Stdout: args[0] + " ok\n"}, nil
			})
	}
	app.LoadScript(blinkScript)

	res := app.Upload("COM3")
	if !res.OK {
		t.Fatalf("upload failed: %s", res.Error)
	}
	if len(calls) != 2 || calls[0][0] != "compile" || calls[1][0] != "upload" {
		t.Errorf("calls = %v", calls)
	}
	if !strings.Contains(res.Output, "upload ok") {
		t.Errorf("output = %q", res.Output)
	}
	data, err := os.ReadFile(toolchain.SketchPath(app.cfg.SketchDir, "blockstudio"))
	if err != nil {
		t.Fatalf("sketch not written: %v", err)
	}
	if !strings.Contains(string(data), "digitalWrite(13, LOW);") {
		t.Errorf("unexpected sketch:\n%s", data)
	}
}

func TestE2EUploadWithoutPort(t *testing.T) {
	app := newTestApp(t)
	app.LoadScript(`(start)`)
	res := app.Upload("")
	if res.OK || !strings.Contains(res.Error, "no upload port") {
		t.Errorf("result = %+v", res)
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	app := newTestApp(t)
	for i := range 10 {
		res := app.LoadScript(blinkScript)
		if len(res.Errors) > 0 {
			t.Fatalf("iteration %d: %v", i, res.Errors)
		}
		if len(res.Scene.Blocks) != 6 {
			t.Fatalf("iteration %d: %d blocks", i, len(res.Scene.Blocks))
		}
	}
}

func TestKindsAndClear(t *testing.T) {
	app := newTestApp(t)
	kinds := app.Kinds()
	if len(kinds) != len(graph.Kinds()) {
		t.Fatalf("got %d kinds", len(kinds))
	}
	containers := 0
	for _, k := range kinds {
		if k.Container {
			containers++
		}
	}
	if containers != 3 {
		t.Errorf("expected 3 containers, got %d", containers)
	}

	app.LoadScript(blinkScript)
	if scene := app.Clear(); len(scene.Blocks) != 0 {
		t.Errorf("Clear left %d blocks", len(scene.Blocks))
	}
}
