// Package toolchain writes sketches to disk and drives arduino-cli to
// compile and upload them.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCLI is the arduino-cli executable looked up on PATH.
const DefaultCLI = "arduino-cli"

var ErrNoPort = errors.New("toolchain: no upload port configured")

// StepError reports a failed arduino-cli invocation.
type StepError struct {
	Step     string // "compile", "upload" or "board list"
	ExitCode int
	Stderr   string
	Err      error
}

func (e *StepError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("toolchain: %s failed (exit %d): %s", e.Step, e.ExitCode, msg)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Output is what one invocation printed.
type Output struct {
	Stdout string
	Stderr string
}

// RunFunc executes name with args. Runner uses exec by default; tests swap
// in a fake.
type RunFunc func(ctx context.Context, name string, args ...string) (Output, error)

// Runner compiles and uploads sketches for one board.
type Runner struct {
	CLI    string
	FQBN   string
	Port   string
	Logger *slog.Logger

	// Timeout bounds each invocation when positive.
	Timeout time.Duration

	run RunFunc
}

// NewRunner returns a runner that executes the real arduino-cli.
func NewRunner(cli, fqbn, port string, logger *slog.Logger) *Runner {
	if cli == "" {
		cli = DefaultCLI
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{CLI: cli, FQBN: fqbn, Port: port, Logger: logger, run: execRun}
}

// WithRunFunc replaces the process launcher.
func (r *Runner) WithRunFunc(fn RunFunc) *Runner {
	r.run = fn
	return r
}

func execRun(ctx context.Context, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

// Validate checks that the arduino-cli executable can be found.
func (r *Runner) Validate() error {
	if _, err := exec.LookPath(r.CLI); err != nil {
		return fmt.Errorf("toolchain: arduino-cli not found at %q: %w", r.CLI, err)
	}
	return nil
}

// CompileArgs returns the arguments of the compile step.
func (r *Runner) CompileArgs(sketchDir string) []string {
	return []string{"compile", "--fqbn", r.FQBN, sketchDir}
}

// UploadArgs returns the arguments of the upload step.
func (r *Runner) UploadArgs(sketchDir string) []string {
	return []string{"upload", "-p", r.Port, "--fqbn", r.FQBN, "--verbose", sketchDir}
}

// Compile builds the sketch in sketchDir.
func (r *Runner) Compile(ctx context.Context, sketchDir string) (Output, error) {
	return r.step(ctx, "compile", r.CompileArgs(sketchDir))
}

// Upload flashes the sketch in sketchDir to the configured port.
func (r *Runner) Upload(ctx context.Context, sketchDir string) (Output, error) {
	if r.Port == "" {
		return Output{}, ErrNoPort
	}
	return r.step(ctx, "upload", r.UploadArgs(sketchDir))
}

// Flash compiles then uploads, stopping at the first failure.
func (r *Runner) Flash(ctx context.Context, sketchDir string) (Output, error) {
	if r.Port == "" {
		return Output{}, ErrNoPort
	}
	if out, err := r.Compile(ctx, sketchDir); err != nil {
		return out, err
	}
	return r.Upload(ctx, sketchDir)
}

func (r *Runner) step(ctx context.Context, name string, args []string) (Output, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	start := time.Now()
	r.Logger.Debug("running arduino-cli", "step", name, "args", strings.Join(args, " "))

	out, err := r.run(ctx, r.CLI, args...)
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		r.Logger.Error("arduino-cli failed", "step", name, "exit", code, "elapsed", time.Since(start))
		return out, &StepError{Step: name, ExitCode: code, Stderr: out.Stderr, Err: err}
	}
	r.Logger.Info("arduino-cli finished", "step", name, "fqbn", r.FQBN, "port", r.Port, "elapsed", time.Since(start))
	return out, nil
}

// SketchPath returns where a sketch called name lives under dir. arduino-cli
// requires the folder and the .ino file to share the sketch name.
func SketchPath(dir, name string) string {
	return filepath.Join(dir, name, name+".ino")
}

// WriteSketch writes source to SketchPath(dir, name), creating the folder,
// and returns the sketch folder.
func WriteSketch(dir, name, source string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("toolchain: invalid sketch name %q", name)
	}
	path := SketchPath(dir, name)
	folder := filepath.Dir(path)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("toolchain: create sketch folder: %w", err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("toolchain: write sketch: %w", err)
	}
	return folder, nil
}
