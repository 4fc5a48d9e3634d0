package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/exectime/internal/config"
	"github.com/psantana5/exectime/internal/store"
	"github.com/psantana5/exectime/pkg/logging"
	"github.com/psantana5/exectime/pkg/timing"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	return cfg
}

func quietLogger() *logging.Logger {
	l := logging.NewLogger(logging.ERROR, false)
	l.SetOutput(&bytes.Buffer{})
	return l
}

func TestBuildDefaults(t *testing.T) {
	cfg := loadConfig(t, nil)
	var console bytes.Buffer

	p, err := Build(context.Background(), cfg, Options{Logger: quietLogger(), Console: &console})
	require.NoError(t, err)
	defer p.Close(context.Background())

	assert.Equal(t, []string{"console", "prometheus"}, p.Sinks())
	assert.Nil(t, p.Store)

	_, err = timing.Measure(p.Timer, "GetNumber", func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)

	assert.Contains(t, console.String(), "GetNumber: ")
	assert.Contains(t, console.String(), "(failure: boom)")

	summary, ok := p.Stats.Get("GetNumber")
	require.True(t, ok)
	assert.Equal(t, uint64(1), summary.Failures)
	assert.Equal(t, 1, p.SlowLog.Count())

	n, err := testutil.GatherAndCount(p.Registry, "exectime_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildWithStoreAndLogger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	cfg := loadConfig(t, map[string]string{
		"EXECTIME_SINKS_CONSOLE_ENABLED":     "false",
		"EXECTIME_SINKS_LOGGER_ENABLED":      "true",
		"EXECTIME_SINKS_LOGRUS_ENABLED":      "true",
		"EXECTIME_SINKS_LOGGER_THROTTLE_RPS": "100",
		"EXECTIME_SINKS_STORE_ENABLED":       "true",
		"EXECTIME_SINKS_STORE_PATH":          dbPath,
		"EXECTIME_SINKS_PROMETHEUS_ENABLED":  "false",
	})

	var out bytes.Buffer
	p, err := Build(context.Background(), cfg, Options{Logger: quietLogger(), Console: &out})
	require.NoError(t, err)

	assert.Equal(t, []string{"logger", "logrus", "store"}, p.Sinks())
	require.NoError(t, p.Timer.Run("saved", func() error { return nil }))

	got, err := p.Store.List(context.Background(), store.Query{Label: "saved"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, out.String(), "saved")

	require.NoError(t, p.Close(context.Background()))
}

func TestBuildFailureClosesOpenedSinks(t *testing.T) {
	cfg := loadConfig(t, nil)
	cfg.Sinks.Store.Enabled = true
	cfg.Sinks.Store.Type = "mongodb"

	_, err := Build(context.Background(), cfg, Options{Logger: quietLogger()})
	assert.ErrorIs(t, err, store.ErrUnsupportedDatabase)
}
