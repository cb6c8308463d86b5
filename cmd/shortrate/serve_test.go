package main

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/shortrate/internal/shortrate/application"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	grpcserver "github.com/wyfcoding/shortrate/internal/shortrate/interfaces/grpc"
	"github.com/wyfcoding/shortrate/pkg/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNewGRPCServer_ThrottlesGeneratePathsOnly(t *testing.T) {
	a := &app{
		cfg: &config.Config{GRPC: config.GRPCConfig{ScenarioQPS: 0.001, ScenarioBurst: 1}},
		scenarios: application.NewScenarioService(domain.NewPathGenerator(1), nil, nil,
			application.Limits{MaxPaths: 10, MaxSteps: 100, MaxCells: 1000}),
	}

	lis := bufconn.Listen(1 << 20)
	srv := newGRPCServer(a)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := grpcserver.NewClient(conn)

	req, err := structpb.NewStruct(map[string]any{
		"model": "vasicek", "dt": 0.1, "a": 0.1, "b": 0.05, "sigma": 0.01, "r0": 0.03, "t": 1, "n": 1, "seed": 1,
	})
	require.NoError(t, err)

	_, err = client.GeneratePaths(context.Background(), req)
	require.NoError(t, err)
	_, err = client.GeneratePaths(context.Background(), req)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// 历史利率查询不受场景限流影响；未配置数据源时返回 Unavailable
	yearReq, err := structpb.NewStruct(map[string]any{"year": 2020})
	require.NoError(t, err)
	for range 3 {
		_, err = client.GetRatesByYear(context.Background(), yearReq)
		assert.Equal(t, codes.Unavailable, status.Code(err))
	}
}
