package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Defaults for Runner.
const (
	DefaultInterpreter = "python3"
	DefaultTimeout     = 10 * time.Second
)

// Result is one execution of a script.
type Result struct {
	Code     string        `json:"code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
}

// Format renders the result as a plain-text execution report.
func (r *Result) Format() string {
	if r.TimedOut {
		return "Error: Code execution timed out."
	}
	return fmt.Sprintf("--- Input Code ---\n%s\n\n--- Execution Output ---\n%s\n\n--- Errors ---\n%s\n\n--- Exit Code ---\n%d",
		r.Code, strings.TrimSpace(r.Stdout), strings.TrimSpace(r.Stderr), r.ExitCode)
}

// Runner executes Python scripts in a subprocess.
type Runner struct {
	interpreter string
	timeout     time.Duration
	tempDir     string
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithInterpreter sets the interpreter binary.
func WithInterpreter(path string) Option {
	return func(r *Runner) {
		if path != "" {
			r.interpreter = path
		}
	}
}

// WithTimeout sets the wall-clock limit of a run.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithTempDir sets where scripts are written. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		r.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		interpreter: DefaultInterpreter,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeout returns the configured limit.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Run writes code to a temporary file and executes it. A script that exits
// non-zero or runs out of time is not an error; it is reported in Result.
// Errors are returned when the script cannot be written or the interpreter
// cannot be started.
func (r *Runner) Run(ctx context.Context, code string) (*Result, error) {
	f, err := os.CreateTemp(r.tempDir, "ampdesign-*.py")
	if err != nil {
		return nil, fmt.Errorf("create script: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to remove script", "path", path, "error", err)
		}
	}()

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return nil, fmt.Errorf("write script: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close script: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.interpreter, path)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		Code:     code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			res.TimedOut = true
			res.ExitCode = -1
		case ctx.Err() != nil:
			return nil, fmt.Errorf("run script: %w", ctx.Err())
		case errors.As(runErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("run %s: %w", r.interpreter, runErr)
		}
	}

	r.logger.Debug("Script finished",
		"exit_code", res.ExitCode,
		"timed_out", res.TimedOut,
		"duration", res.Duration)
	return res, nil
}
