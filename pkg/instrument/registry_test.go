package instrument

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/exectime/pkg/timing"
)

func TestWrap(t *testing.T) {
	rec := timing.NewRecorder()
	getData := Wrap(timing.New(rec), "GetData", func() (string, error) {
		return "Hello World", nil
	})

	for i := 0; i < 2; i++ {
		v, err := getData()
		require.NoError(t, err)
		assert.Equal(t, "Hello World", v)
	}
	assert.Len(t, rec.ByLabel("GetData"), 2)
}

func TestWrapContext(t *testing.T) {
	rec := timing.NewRecorder()
	parse := WrapContext(timing.New(rec), "Parse", func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	})

	n, err := parse(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parse(context.Background(), "x")
	var numErr *strconv.NumError
	assert.True(t, errors.As(err, &numErr))
	assert.Equal(t, timing.OutcomeFailure, rec.Results()[1].Outcome)
}

func TestRegistry(t *testing.T) {
	rec := timing.NewRecorder()
	reg := NewRegistry[int, int](timing.New(rec))

	require.NoError(t, reg.Register("double", func(_ context.Context, n int) (int, error) { return n * 2, nil }))
	reg.MustRegister("negate", func(_ context.Context, n int) (int, error) { return -n, nil })

	assert.ErrorIs(t, reg.Register("double", func(context.Context, int) (int, error) { return 0, nil }), ErrDuplicateOperation)
	assert.ErrorIs(t, reg.Register(" ", func(context.Context, int) (int, error) { return 0, nil }), timing.ErrInvalidArgument)
	assert.ErrorIs(t, reg.Register("nil", nil), timing.ErrInvalidArgument)

	v, err := reg.Call(context.Background(), "double", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = reg.Call(context.Background(), "triple", 1)
	assert.ErrorIs(t, err, ErrUnknownOperation)

	assert.Equal(t, []string{"double", "negate"}, reg.Names())
	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, "double", rec.Results()[0].Label)
}
