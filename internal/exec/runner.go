package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	apperrors "github.com/dygy/sheetplay/internal/errors"
)

// Result holds command execution output
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes external tools as synchronous, blocking calls. Stage logic
// branches only on the exit status, never on output text.
type Runner struct{}

// NewRunner creates a new command runner
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes a command and captures stdout/stderr separately.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	}

	if err != nil {
		return result, fmt.Errorf("command %s failed: %w", name, err)
	}

	return result, nil
}

// RunLogged executes a command with combined stdout/stderr streamed to a log
// file, the contract the OMR engine expects for its batch and per-image logs.
func (r *Runner) RunLogged(ctx context.Context, logPath, name string, args ...string) (*Result, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", logPath, err)
	}
	defer logFile.Close()

	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	err = cmd.Run()

	result := &Result{Duration: time.Since(start)}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	}

	if err != nil {
		return result, fmt.Errorf("command %s failed: %w (log: %s)", name, err, logPath)
	}

	return result, nil
}

// Find probes an ordered list of candidate executable names and returns the
// resolved path of the first one present on the host. First found wins.
func Find(candidates ...string) (string, error) {
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %v found in PATH", apperrors.ErrToolNotInstalled, candidates)
}
