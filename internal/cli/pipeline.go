package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/blockstudio/pkg/codegen"
	"github.com/chazu/blockstudio/pkg/editor"
	"github.com/chazu/blockstudio/pkg/engine"
	"github.com/chazu/blockstudio/pkg/sketch"
)

// ScriptError reports the errors a block script produced.
type ScriptError struct {
	Path   string
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(msgs, "; "))
}

// build is one script taken all the way to a sketch.
type build struct {
	Session *editor.Session
	Result  codegen.Result
	Profile sketch.Profile
	Sketch  string
	Digest  string // sha256 of Sketch
}

// evaluate runs the script at path with the configured engine settings.
func (e *env) evaluate(path string) (*editor.Session, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	eng := engine.NewEngine(editor.WithThreshold(e.cfg.SnapThreshold))
	eng.Timeout = e.cfg.EvalTimeout

	s, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		return nil, &ScriptError{Path: path, Errors: evalErrs}
	}
	return s, nil
}

// build evaluates the script, generates its statements and wraps them for
// the configured board.
func (e *env) build(path string) (*build, error) {
	s, err := e.evaluate(path)
	if err != nil {
		return nil, err
	}
	res, err := codegen.Run(s.Graph(), s.Graph().Start())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := e.cfg.Profile()
	if err != nil {
		return nil, err
	}
	src := sketch.Wrap(res.Code, p)
	sum := sha256.Sum256([]byte(src))
	return &build{
		Session: s,
		Result:  res,
		Profile: p,
		Sketch:  src,
		Digest:  hex.EncodeToString(sum[:]),
	}, nil
}

// sketchName derives the sketch folder name from the script path.
// arduino-cli wants letters, digits, '_' and '-' only.
func sketchName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, base)
	if name == "" || name[0] == '-' {
		name = "sketch" + name
	}
	return name
}
