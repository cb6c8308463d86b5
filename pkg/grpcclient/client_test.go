package grpcclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/shortrate/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestUnaryClientInterceptor_RetriesUnavailable(t *testing.T) {
	interceptor := unaryClientInterceptor(ClientConfig{MaxRetries: 2, RetryDelay: 1})

	calls := 0
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "connection refused")
		}
		return nil
	}

	require.NoError(t, interceptor(context.Background(), "/svc/M", nil, nil, nil, invoker))
	assert.Equal(t, 3, calls)
}

func TestUnaryClientInterceptor_DoesNotRetryClientErrors(t *testing.T) {
	interceptor := unaryClientInterceptor(ClientConfig{MaxRetries: 3, RetryDelay: 1})

	calls := 0
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		return status.Error(codes.InvalidArgument, "dt must be > 0")
	}

	err := interceptor(context.Background(), "/svc/M", nil, nil, nil, invoker)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 1, calls)
}

func TestUnaryClientInterceptor_PropagatesTraceID(t *testing.T) {
	interceptor := unaryClientInterceptor(ClientConfig{RequestTimeout: 5})
	ctx := logger.ContextWithRequestID(context.Background(), "req-1", "trace-1")

	var got []string
	var hasDeadline bool
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		got = md.Get(traceMetadataKey)
		_, hasDeadline = ctx.Deadline()
		return nil
	}

	require.NoError(t, interceptor(ctx, "/svc/M", nil, nil, nil, invoker))
	assert.Equal(t, []string{"trace-1"}, got)
	assert.True(t, hasDeadline)
}

func TestNewClient(t *testing.T) {
	conn, err := NewClient(ClientConfig{Target: "passthrough:///localhost:50051", KeepaliveInterval: 30})
	require.NoError(t, err)
	assert.NoError(t, conn.Close())
}
