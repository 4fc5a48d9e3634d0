package instrument

import (
	"context"

	"google.golang.org/grpc"

	"github.com/psantana5/exectime/pkg/timing"
)

// UnaryServerInterceptor times unary handlers under their full method name.
// The handler's error is returned as is.
func UnaryServerInterceptor(t *timing.Timer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return timing.MeasureContext(ctx, t, info.FullMethod, func(ctx context.Context) (interface{}, error) {
			return handler(ctx, req)
		})
	}
}

// StreamServerInterceptor times a stream from open to handler return.
func StreamServerInterceptor(t *timing.Timer) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return t.Run(info.FullMethod, func() error {
			return handler(srv, ss)
		})
	}
}

// UnaryClientInterceptor times outgoing unary calls, network time included.
func UnaryClientInterceptor(t *timing.Timer) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return t.RunContext(ctx, method, func(ctx context.Context) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		})
	}
}
