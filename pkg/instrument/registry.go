package instrument

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/psantana5/exectime/pkg/timing"
)

// ErrUnknownOperation is returned by Registry.Call for unregistered names.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrDuplicateOperation is returned when a name is registered twice.
var ErrDuplicateOperation = errors.New("operation already registered")

// Wrap returns op decorated with timing under label.
func Wrap[T any](t *timing.Timer, label string, op func() (T, error)) func() (T, error) {
	return func() (T, error) {
		return timing.Measure(t, label, op)
	}
}

// WrapContext returns fn decorated with timing under label.
func WrapContext[In, Out any](t *timing.Timer, label string, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		return timing.MeasureContext(ctx, t, label, func(ctx context.Context) (Out, error) {
			return fn(ctx, in)
		})
	}
}

// Registry maps operation names to timed functions. Every function sharing a
// registry has the same signature; the name doubles as the timing label.
type Registry[In, Out any] struct {
	timer *timing.Timer

	mu  sync.RWMutex
	ops map[string]func(context.Context, In) (Out, error)
}

// NewRegistry creates an empty registry timing through t.
func NewRegistry[In, Out any](t *timing.Timer) *Registry[In, Out] {
	return &Registry[In, Out]{
		timer: t,
		ops:   make(map[string]func(context.Context, In) (Out, error)),
	}
}

// Register adds fn under name.
func (r *Registry[In, Out]) Register(name string, fn func(context.Context, In) (Out, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return fmt.Errorf("%w: registration needs a name and a function", timing.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, name)
	}
	r.ops[name] = WrapContext(r.timer, name, fn)
	return nil
}

// MustRegister is Register that panics, for package-level tables.
func (r *Registry[In, Out]) MustRegister(name string, fn func(context.Context, In) (Out, error)) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Call runs the function registered under name.
func (r *Registry[In, Out]) Call(ctx context.Context, name string, in In) (Out, error) {
	r.mu.RLock()
	fn, ok := r.ops[name]
	r.mu.RUnlock()
	if !ok {
		var zero Out
		return zero, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return fn(ctx, in)
}

// Names lists registered operations in sorted order.
func (r *Registry[In, Out]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
