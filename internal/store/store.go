package store

import (
	"context"
	"time"

	"github.com/psantana5/exectime/internal/retry"
	"github.com/psantana5/exectime/pkg/timing"
)

// Store persists timing results. Both SQLite and PostgreSQL implement it.
type Store interface {
	Save(ctx context.Context, r timing.Result) error
	List(ctx context.Context, q Query) ([]timing.Result, error)
	Close() error
	HealthCheck(ctx context.Context) error
}

// Query filters List. Results come back newest first.
type Query struct {
	Label        string
	Since        time.Time
	FailuresOnly bool
	Limit        int // 0 means no limit
}

// Config selects and tunes a backend.
type Config struct {
	Type string `mapstructure:"type" yaml:"type" json:"type"` // "sqlite" or "postgres"
	DSN  string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	Path string `mapstructure:"path" yaml:"path" json:"path"` // SQLite file, used when DSN is empty

	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time" json:"conn_max_idle_time"`

	// Retry governs the initial PostgreSQL ping.
	Retry retry.Config `mapstructure:"-" yaml:"-" json:"-"`
}

// New opens the backend named by cfg.Type and creates the schema.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "postgres", "postgresql":
		return NewPostgreSQLStore(ctx, cfg)
	case "sqlite", "sqlite3", "":
		path := cfg.Path
		if path == "" {
			path = cfg.DSN
		}
		if path == "" {
			path = "exectime.db"
		}
		return NewSQLiteStore(ctx, path)
	default:
		return nil, ErrUnsupportedDatabase
	}
}

var (
	ErrUnsupportedDatabase = NewError("unsupported database type")
)

// NewError creates a new error with message
func NewError(message string) error {
	return &storeError{message: message}
}

type storeError struct {
	message string
}

func (e *storeError) Error() string {
	return e.message
}
