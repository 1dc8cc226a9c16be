package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/chazu/blockstudio/internal/config"
	"github.com/chazu/blockstudio/pkg/codegen"
	"github.com/chazu/blockstudio/pkg/editor"
	"github.com/chazu/blockstudio/pkg/engine"
	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
	"github.com/chazu/blockstudio/pkg/monitor"
	"github.com/chazu/blockstudio/pkg/sketch"
	"github.com/chazu/blockstudio/pkg/toolchain"
)

// App is the Wails backend. Every exported method is a frontend binding;
// the ones that change the workspace return the new scene.
type App struct {
	ctx    context.Context
	cfg    config.Config
	logger *slog.Logger
	engine *engine.Engine

	mu      sync.Mutex
	session *editor.Session
	profile sketch.Profile

	// newRunner builds the arduino-cli runner for an upload or port listing.
	newRunner func(fqbn, port string) *toolchain.Runner

	openPort monitor.OpenFunc
	serialMu sync.Mutex
	serial   *serialConn
}

// KindInfo describes a palette entry.
type KindInfo struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	Container bool              `json:"container"`
	Fields    []graph.FieldSpec `json:"fields"`
}

// SceneData is the workspace as the frontend draws it.
type SceneData struct {
	Blocks    []editor.BlockView `json:"blocks"`
	State     string             `json:"state"`
	Highlight graph.BlockID      `json:"highlight,omitempty"`
	Relation  string             `json:"relation,omitempty"`
}

// EvalErrorData is a JSON-serializable script error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// ScriptResult is returned by LoadScript.
type ScriptResult struct {
	Scene  SceneData       `json:"scene"`
	Errors []EvalErrorData `json:"errors"`
}

// GenerateResult is the code for the current program, or the reason there
// is none. Block names the offending block when one is to blame.
type GenerateResult struct {
	Code     string        `json:"code"`
	Sketch   string        `json:"sketch"`
	Declared []string      `json:"declared"`
	Error    string        `json:"error,omitempty"`
	Block    graph.BlockID `json:"block,omitempty"`
}

// RunResult reports an upload.
type RunResult struct {
	OK     bool   `json:"ok"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// NewApp creates an App with an empty workspace and the configured board.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	p, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(editor.WithThreshold(cfg.SnapThreshold))
	eng.Timeout = cfg.EvalTimeout

	a := &App{
		ctx:      context.Background(),
		cfg:      cfg,
		logger:   logger,
		engine:   eng,
		session:  editor.New(editor.WithThreshold(cfg.SnapThreshold)),
		profile:  p,
		openPort: monitor.OpenSerial,
	}
	a.newRunner = func(fqbn, port string) *toolchain.Runner {
		r := toolchain.NewRunner(cfg.ArduinoCLI, fqbn, port, logger)
		r.Timeout = cfg.UploadTimeout
		return r
	}
	return a, nil
}

// startup is called by Wails on app startup. The context is kept for
// uploads so they stop when the window closes.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// Kinds lists the palette.
func (a *App) Kinds() []KindInfo {
	var out []KindInfo
	for _, k := range graph.Kinds() {
		out = append(out, KindInfo{
			Name:      k.String(),
			Label:     k.Label(),
			Container: k.IsContainer(),
			Fields:    k.Fields(),
		})
	}
	return out
}

// Scene returns the current workspace.
func (a *App) Scene() SceneData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scene()
}

func (a *App) scene() SceneData {
	sd := SceneData{
		Blocks: a.session.Scene(),
		State:  a.session.State().String(),
	}
	if hl := a.session.Highlight(); hl.Valid() {
		sd.Highlight = hl.Target
		sd.Relation = hl.Relation.String()
	}
	return sd
}

// update runs fn against the session and returns the resulting scene.
func (a *App) update(fn func(s *editor.Session) error) (SceneData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := fn(a.session); err != nil {
		return a.scene(), err
	}
	return a.scene(), nil
}

// AddBlock creates a block of the named kind at (x, y).
func (a *App) AddBlock(kind string, x, y float64) (SceneData, error) {
	k, err := graph.ParseKind(kind)
	if err != nil {
		return a.Scene(), err
	}
	return a.update(func(s *editor.Session) error {
		_, err := s.CreateBlock(k, geom.V(x, y))
		return err
	})
}

// SetField edits one field of a block.
func (a *App) SetField(id graph.BlockID, name, value string) (SceneData, error) {
	return a.update(func(s *editor.Session) error {
		return s.SetField(id, name, value)
	})
}

// Grab starts a drag of block id at pointer (x, y).
func (a *App) Grab(id graph.BlockID, x, y float64) (SceneData, error) {
	return a.update(func(s *editor.Session) error {
		return s.BeginGrab(id, geom.V(x, y))
	})
}

// Drag moves the grabbed block with the pointer.
func (a *App) Drag(id graph.BlockID, x, y float64) (SceneData, error) {
	return a.update(func(s *editor.Session) error {
		return s.Drag(id, geom.V(x, y))
	})
}

// Release drops the grabbed block and commits any snap.
func (a *App) Release(id graph.BlockID) (SceneData, error) {
	return a.update(func(s *editor.Session) error {
		out, err := s.Release(id)
		if err == nil && out.Snapped() {
			a.logger.Debug("snapped", "block", id, "relation", out.Candidate.Relation.String(), "target", out.Candidate.Target)
		}
		return err
	})
}

// Cancel abandons the current drag.
func (a *App) Cancel() SceneData {
	scene, _ := a.update(func(s *editor.Session) error {
		s.Cancel()
		return nil
	})
	return scene
}

// Detach pulls a block out of its sequence or container.
func (a *App) Detach(id graph.BlockID) (SceneData, error) {
	return a.update(func(s *editor.Session) error {
		return s.Detach(id)
	})
}

// Delete removes a block and, for containers, everything inside it.
func (a *App) Delete(id graph.BlockID) (SceneData, error) {
	return a.update(func(s *editor.Session) error {
		return s.Delete(id)
	})
}

// Clear empties the workspace.
func (a *App) Clear() SceneData {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = editor.New(editor.WithThreshold(a.cfg.SnapThreshold))
	return a.scene()
}

// LoadScript replaces the workspace with the one a block script builds. On
// any error the workspace is left as it was.
func (a *App) LoadScript(source string) ScriptResult {
	result := ScriptResult{Errors: []EvalErrorData{}}

	s, evalErrs, err := a.engine.Evaluate(source)
	switch {
	case err != nil:
		a.logger.Error("script evaluation failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	case len(evalErrs) > 0:
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(result.Errors) == 0 {
		a.session = s
		a.logger.Info("script loaded", "blocks", s.Graph().Len())
	}
	result.Scene = a.scene()
	return result
}

// Generate produces the code of the program rooted at the Start block,
// both as bare statements and as a complete sketch.
func (a *App) Generate() GenerateResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generate()
}

func (a *App) generate() GenerateResult {
	g := a.session.Graph()
	res, err := codegen.Run(g, g.Start())
	if err != nil {
		out := GenerateResult{Declared: []string{}, Error: err.Error()}
		var ve *codegen.ValidationError
		if errors.As(err, &ve) {
			out.Block = ve.Block
		}
		return out
	}
	declared := res.Declared
	if declared == nil {
		declared = []string{}
	}
	a.logger.Info("generated", "blocks", res.Blocks, "bytes", len(res.Code))
	return GenerateResult{
		Code:     res.Code,
		Sketch:   sketch.Wrap(res.Code, a.profile),
		Declared: declared,
	}
}

// Profile returns the board profile used for sketches.
func (a *App) Profile() sketch.Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile
}

// SetPinMode changes the mode one pin is configured with in setup().
func (a *App) SetPinMode(pin int, mode string) (sketch.Profile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.profile.SetMode(pin, mode); err != nil {
		return a.profile, err
	}
	return a.profile, nil
}

// Upload generates the sketch, compiles it and uploads it to port, or to
// the configured port when port is empty.
func (a *App) Upload(port string) RunResult {
	a.mu.Lock()
	gen := a.generate()
	fqbn := a.profile.FQBN
	a.mu.Unlock()

	if gen.Error != "" {
		return RunResult{Error: gen.Error}
	}
	if port == "" {
		port = a.cfg.Port
	}
	folder, err := toolchain.WriteSketch(a.cfg.SketchDir, "blockstudio", gen.Sketch)
	if err != nil {
		return RunResult{Error: err.Error()}
	}

	out, err := a.newRunner(fqbn, port).Flash(a.ctx, folder)
	result := RunResult{Output: out.Stdout + out.Stderr}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	a.logger.Info("uploaded", "port", port, "fqbn", fqbn)
	return result
}
