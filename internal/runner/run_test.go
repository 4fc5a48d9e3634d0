package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/exectime/pkg/timing"
)

func TestRunSuccess(t *testing.T) {
	rec := timing.NewRecorder()
	var stdout bytes.Buffer

	out, err := Run(context.Background(), timing.New(rec), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo hello"},
		Stdout:  &stdout,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, out.ExitCode)
	assert.True(t, out.Succeeded())
	assert.NotEmpty(t, out.JobID)
	assert.Greater(t, out.PID, 0)
	assert.Equal(t, "hello\n", stdout.String())

	require.Equal(t, 1, rec.Len())
	assert.Equal(t, "sh", rec.Results()[0].Label)
	assert.Equal(t, timing.OutcomeSuccess, rec.Results()[0].Outcome)
}

func TestRunNonZeroExitIsReportedFailure(t *testing.T) {
	rec := timing.NewRecorder()

	out, err := Run(context.Background(), timing.New(rec), Spec{
		Label:   "exit-3",
		JobID:   "job-1",
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "job-1", out.JobID)
	assert.False(t, out.Succeeded())

	r := rec.Results()[0]
	assert.Equal(t, "exit-3", r.Label)
	var exitErr *ExitError
	require.True(t, errors.As(r.Err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
}

func TestRunStartFailureReportedOnce(t *testing.T) {
	rec := timing.NewRecorder()

	_, err := Run(context.Background(), timing.New(rec), Spec{Command: "/nonexistent/binary"})
	require.Error(t, err)

	require.Equal(t, 1, rec.Len())
	assert.Equal(t, timing.OutcomeFailure, rec.Results()[0].Outcome)
}

func TestRunCancelKillsCommand(t *testing.T) {
	rec := timing.NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out, err := Run(ctx, timing.New(rec), Spec{Command: "sleep", Args: []string{"10"}})
	require.NoError(t, err)

	assert.Less(t, out.Duration, 5*time.Second)
	r := rec.Results()[0]
	assert.True(t, r.Canceled)
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
}

func TestRunEmptyCommand(t *testing.T) {
	rec := timing.NewRecorder()
	_, err := Run(context.Background(), timing.New(rec), Spec{})
	assert.ErrorIs(t, err, timing.ErrInvalidArgument)
	assert.Equal(t, 0, rec.Len())
}
