package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/exectime/pkg/logging"
)

// Manager runs registered cleanup functions in reverse registration order.
type Manager struct {
	mu      sync.Mutex
	funcs   []namedFunc
	timeout time.Duration
	logger  *logging.Logger
	done    chan struct{}
	once    sync.Once
}

type namedFunc struct {
	name string
	fn   func(context.Context) error
}

// New creates a manager that gives all cleanup functions timeout in total.
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Register adds a shutdown function. Functions are called LIFO.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, namedFunc{name: name, fn: fn})
}

// Done is closed when shutdown starts.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Shutdown executes all registered functions once and returns their errors
// joined. Later calls are no-ops.
func (m *Manager) Shutdown() error {
	var errs []error
	m.once.Do(func() {
		close(m.done)

		m.mu.Lock()
		funcs := m.funcs
		m.funcs = nil
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		for i := len(funcs) - 1; i >= 0; i-- {
			f := funcs[i]
			m.logger.Info("Stopping "+f.name, nil)
			if err := f.fn(ctx); err != nil {
				m.logger.Error("Shutdown step failed", logging.Fields{"step": f.name, "error": err})
				errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			}
		}
		m.logger.Info("Graceful shutdown complete")
	})
	return errors.Join(errs...)
}

// WaitWithContext blocks until SIGINT/SIGTERM or ctx is done, then shuts
// down. It returns ctx's error only when no signal arrived.
func (m *Manager) WaitWithContext(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.logger.Info("Received signal, initiating graceful shutdown", logging.Fields{"signal": sig.String()})
		return m.Shutdown()
	case <-ctx.Done():
		if err := m.Shutdown(); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// StopServer adapts anything with Shutdown(ctx), such as *http.Server.
func StopServer(server interface{ Shutdown(context.Context) error }) func(context.Context) error {
	return server.Shutdown
}

// CloseResource adapts an io.Closer.
func CloseResource(closer interface{ Close() error }) func(context.Context) error {
	return func(context.Context) error {
		return closer.Close()
	}
}
