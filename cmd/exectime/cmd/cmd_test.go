package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/exectime/internal/report"
)

// resetFlags puts every flag back to its default so one test's flags do not
// leak into the next through the package-level variables.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	c.SetContext(nil)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeContext(t *testing.T, ctx context.Context, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EXECTIME_SINKS_PROMETHEUS_ENABLED", "false")
	return executeContext(t, context.Background(), args...)
}

// captureStdout runs fn with os.Stdout redirected to a file and returns what
// was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "stdout"))
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = f
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, f.Close())
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(data)
}

func TestRunPropagatesExitCode(t *testing.T) {
	err := execute(t, "run", "--label", "exit-4", "--", "sh", "-c", "exit 4")

	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want ExitCodeError", err)
	}
	if exitErr.Code != 4 {
		t.Fatalf("code = %d, want 4", exitErr.Code)
	}
}

func TestRunSuccess(t *testing.T) {
	var err error
	out := captureStdout(t, func() {
		err = execute(t, "run", "--", "true")
	})
	require.NoError(t, err)
	assert.Contains(t, out, "true: ")
}

func TestRunFlagsDoNotCarryOver(t *testing.T) {
	require.NoError(t, execute(t, "run", "--label", "first", "--", "true"))

	out := captureStdout(t, func() {
		require.NoError(t, execute(t, "run", "--", "true"))
	})
	assert.NotContains(t, out, "first")
	assert.Empty(t, runLabel)
}

func TestConfigShowRejectsUnknownFormat(t *testing.T) {
	if err := execute(t, "config", "show", "--output", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestReportReadsStoredRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("EXECTIME_SINKS_STORE_ENABLED", "true")
	t.Setenv("EXECTIME_SINKS_STORE_PATH", db)

	require.NoError(t, execute(t, "run", "--label", "ok", "--", "true"))
	require.NoError(t, execute(t, "run", "--label", "ok", "--", "true"))
	err := execute(t, "run", "--label", "bad", "--", "sh", "-c", "exit 3")
	var exitErr *ExitCodeError
	require.ErrorAs(t, err, &exitErr)

	var runErr error
	out := captureStdout(t, func() {
		runErr = execute(t, "report", "--output", "json")
	})
	require.NoError(t, runErr)

	var summaries []report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "bad", summaries[0].Label)
	assert.Equal(t, uint64(1), summaries[0].Failures)
	assert.Equal(t, "ok", summaries[1].Label)
	assert.Equal(t, uint64(2), summaries[1].Count)

	out = captureStdout(t, func() {
		runErr = execute(t, "report", "--failures", "--output", "json")
	})
	require.NoError(t, runErr)

	var samples []report.Sample
	require.NoError(t, json.Unmarshal([]byte(out), &samples))
	require.Len(t, samples, 1)
	assert.Equal(t, "bad", samples[0].Label)
}

func TestReportEmptyStore(t *testing.T) {
	t.Setenv("EXECTIME_SINKS_STORE_PATH", filepath.Join(t.TempDir(), "empty.db"))

	var err error
	out := captureStdout(t, func() {
		err = execute(t, "report")
	})
	require.NoError(t, err)
	assert.Contains(t, out, "No timing results found")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func TestServeTimesAPIAndStopsOnCancel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	httpAddr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- executeContext(t, ctx, "serve", "--http-addr", httpAddr, "--grpc-addr", "127.0.0.1:0")
	}()

	base := "http://" + httpAddr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/api/data?delay=1ms")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Hello World")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(base + "/stats")
	require.NoError(t, err)
	var stats []report.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	require.Len(t, stats, 1)
	assert.Equal(t, "GET /api/data", stats[0].Label)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(metrics), `exectime_operations_total{label="GET /api/data",outcome="success"} 1`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
