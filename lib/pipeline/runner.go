package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
)

// DefaultNotebookArgs execute a notebook in place; the notebook path is
// appended after them.
var DefaultNotebookArgs = []string{"nbconvert", "--to", "notebook", "--execute", "--inplace"}

// Outcome is what one job execution reported.
type Outcome struct {
	ExitCode    int
	Diagnostics string
}

// Runner executes a single job and blocks until it terminates. The error is
// reserved for jobs that could not be started at all.
type Runner interface {
	Execute(ctx context.Context, job Job) (Outcome, error)
}

// NotebookRunner runs jobs through the jupyter command line.
type NotebookRunner struct {
	Command string
	Args    []string
	Dir     string
	Logger  *slog.Logger
}

// NewNotebookRunner creates a runner invoking `jupyter nbconvert` in dir.
func NewNotebookRunner(dir string, logger *slog.Logger) *NotebookRunner {
	return &NotebookRunner{
		Command: "jupyter",
		Args:    DefaultNotebookArgs,
		Dir:     dir,
		Logger:  logger,
	}
}

func (r *NotebookRunner) Execute(ctx context.Context, job Job) (Outcome, error) {
	command := r.Command
	if command == "" {
		command = "jupyter"
	}
	args := r.Args
	if args == nil {
		args = DefaultNotebookArgs
	}
	argv := append(slices.Clone(args), job.Path)

	cmd := exec.CommandContext(ctx, command, argv...)
	cmd.Dir = r.Dir
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if r.Logger != nil {
		r.Logger.Debug("Starting job process",
			slog.String("command", command),
			slog.String("args", strings.Join(argv, " ")),
			slog.String("dir", r.Dir))
	}

	err := cmd.Run()
	outcome := Outcome{Diagnostics: strings.TrimSpace(stderr.String())}
	if err == nil {
		return outcome, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		if outcome.ExitCode == 0 {
			outcome.ExitCode = -1
		}
		return outcome, nil
	}

	outcome.ExitCode = -1
	return outcome, fmt.Errorf("failed to start %s: %w", command, err)
}
