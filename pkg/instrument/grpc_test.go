package instrument

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/psantana5/exectime/pkg/timing"
)

func TestUnaryServerInterceptor(t *testing.T) {
	rec := timing.NewRecorder()
	intercept := UnaryServerInterceptor(timing.New(rec))
	info := &grpc.UnaryServerInfo{FullMethod: "/demo.Numbers/Get"}

	resp, err := intercept(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return req.(string) + "-ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req-ok", resp)

	want := status.Error(codes.NotFound, "no such number")
	_, err = intercept(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, want
	})
	assert.Equal(t, want, err)
	assert.Equal(t, codes.NotFound, status.Code(err))

	results := rec.ByLabel("/demo.Numbers/Get")
	require.Len(t, results, 2)
	assert.Equal(t, timing.OutcomeSuccess, results[0].Outcome)
	assert.Equal(t, timing.OutcomeFailure, results[1].Outcome)
}

func TestStreamServerInterceptor(t *testing.T) {
	rec := timing.NewRecorder()
	intercept := StreamServerInterceptor(timing.New(rec))
	info := &grpc.StreamServerInfo{FullMethod: "/demo.Numbers/Watch"}

	err := intercept(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error {
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, rec.ByLabel("/demo.Numbers/Watch"), 1)
}

func TestUnaryClientInterceptor(t *testing.T) {
	rec := timing.NewRecorder()
	intercept := UnaryClientInterceptor(timing.New(rec))

	err := intercept(context.Background(), "/demo.Numbers/Get", nil, nil, nil,
		func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			return context.DeadlineExceeded
		})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r := rec.Results()[0]
	assert.True(t, r.Canceled)
	assert.Equal(t, "/demo.Numbers/Get", r.Label)
}
