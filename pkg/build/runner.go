// Package build runs the external go toolchain commands that compile tools
// and install their dependencies.
package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command describes one collaborator invocation
type Command struct {
	// Name is the executable to run (e.g., "go")
	Name string
	// Args are the arguments passed to Name
	Args []string
	// WorkDir is the directory the command runs in
	WorkDir string
	// Env contains additional environment variables
	Env map[string]string
	// Timeout bounds the run; zero means no deadline
	Timeout time.Duration
	// Verbose streams output to stdout/stderr while capturing it
	Verbose bool
}

// Result contains the outcome of a command run
type Result struct {
	// Success indicates whether the command exited zero
	Success bool
	// Duration is how long the command took
	Duration time.Duration
	// Stdout contains the standard output
	Stdout string
	// Stderr contains the standard error
	Stderr string
}

// Runner executes collaborator commands
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner is the os/exec implementation of Runner
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and returns its captured output. A non-zero exit is
// returned as an error carrying the trimmed stderr.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("command is required")
	}
	if cmd.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if _, err := os.Stat(cmd.WorkDir); err != nil {
		return nil, fmt.Errorf("work directory does not exist: %s", cmd.WorkDir)
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.WorkDir

	c.Env = os.Environ()
	for key, value := range cmd.Env {
		c.Env = append(c.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var stdout, stderr bytes.Buffer
	if cmd.Verbose {
		c.Stdout = io.MultiWriter(&stdout, os.Stdout)
		c.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	start := time.Now()
	err := c.Run()

	result := &Result{
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s %s: %w", cmd.Name, strings.Join(cmd.Args, " "), ctxErr)
		}
		if msg := strings.TrimSpace(result.Stderr); msg != "" {
			return result, fmt.Errorf("%s %s failed: %w: %s", cmd.Name, strings.Join(cmd.Args, " "), err, msg)
		}
		return result, fmt.Errorf("%s %s failed: %w", cmd.Name, strings.Join(cmd.Args, " "), err)
	}

	result.Success = true
	return result, nil
}
