package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/exectime/pkg/timing"
)

// Spec describes a command to run and time.
type Spec struct {
	Label   string // defaults to the command's base name
	JobID   string // defaults to a random UUID
	Command string
	Args    []string
	Dir     string
	Env     []string // appended to the current environment
	Stdout  io.Writer
	Stderr  io.Writer
}

// Outcome is what a finished command looked like.
type Outcome struct {
	JobID    string
	PID      int
	ExitCode int
	Duration time.Duration
	Result   timing.Result
}

// Succeeded reports whether the command exited zero.
func (o *Outcome) Succeeded() bool {
	return o.ExitCode == 0 && !o.Result.Failed()
}

// ExitError is the failure reported for a command that exited non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Run spawns the command in its own process group and times it from start to
// exit. A non-zero exit is reported as a failure and returned in the Outcome,
// not as an error. A command that cannot be started is reported once and its
// start error returned. When ctx ends the whole process group is killed.
func Run(ctx context.Context, t *timing.Timer, spec Spec) (*Outcome, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("%w: command is empty", timing.ErrInvalidArgument)
	}
	label := spec.Label
	if label == "" {
		label = filepath.Base(spec.Command)
	}
	jobID := spec.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = orDefault(spec.Stdout, os.Stdout)
	cmd.Stderr = orDefault(spec.Stderr, os.Stderr)

	// Own process group so children die with the command on cancel.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	sw, err := t.Start(label)
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		sw.Stop(err)
		return nil, fmt.Errorf("failed to start %s: %w", spec.Command, err)
	}
	pid := cmd.Process.Pid

	waitErr := cmd.Wait()

	out := &Outcome{JobID: jobID, PID: pid}
	var failure error
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			res := sw.Stop(waitErr)
			out.Result, out.Duration, out.ExitCode = res, res.Duration, -1
			return out, fmt.Errorf("failed waiting for %s: %w", spec.Command, waitErr)
		}
		out.ExitCode = exitErr.ExitCode()
		failure = &ExitError{Code: out.ExitCode}
		if ctxErr := ctx.Err(); ctxErr != nil {
			failure = ctxErr
		}
	}

	out.Result = sw.Stop(failure)
	out.Duration = out.Result.Duration
	return out, nil
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
