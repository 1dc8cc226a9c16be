// Package engine evaluates block scripts: small zygomys Lisp programs that
// build a block program through an editor session, the same way a pointer
// would. Scripts are the headless and testable input path to the editor.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/blockstudio/pkg/editor"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a non-fatal error in a script, such as a parse error or a
// builtin rejecting its arguments.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalResult bundles the output of an evaluation for UI bindings.
type EvalResult struct {
	Session *editor.Session
	Errors  []EvalError
}

// Engine evaluates scripts. It is safe for concurrent use; each call to
// Evaluate gets a fresh sandbox and a fresh session, and only the newest
// request's result is returned.
type Engine struct {
	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	opts    []editor.Option
	tickets tickets
}

// NewEngine creates an Engine whose sessions are built with opts.
func NewEngine(opts ...editor.Option) *Engine {
	return &Engine{Timeout: EvalTimeout, opts: opts}
}

// Evaluate runs source and returns the session it built.
//
// Return semantics:
//   - On success: session + nil errors + nil error
//   - On parse or builtin failure: nil session + eval errors + nil error
//   - On fatal failure (ErrTimedOut, ErrSuperseded, panic): nil + nil + error
func (e *Engine) Evaluate(source string) (*editor.Session, []EvalError, error) {
	ticket := e.tickets.issue()
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(source)
		ch <- evalResult{session: s, errors: evalErrs, err: err}
	}()

	return e.tickets.await(ch, ticket, timeout)
}

func (e *Engine) evaluate(source string) (*editor.Session, []EvalError, error) {
	s := editor.New(e.opts...)
	if strings.TrimSpace(source) == "" {
		return s, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, s)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return s, nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ...".
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, keeping the
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
