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
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func TestGenerateRemote_MatchesLocal(t *testing.T) {
	scenarios := application.NewScenarioService(domain.NewPathGenerator(2), nil, nil, application.Limits{})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	grpcserver.RegisterShortRateServiceServer(srv, grpcserver.NewShortRateHandler(scenarios, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	seed := int64(42)
	command := application.GenerateScenarioCommand{
		Model: "cir", Dt: 0.01, A: 0.1, B: 0.02, Sigma: 0.2, R0: 0.02, T: 1, N: 3, Seed: &seed,
	}

	remote, err := generateRemote(context.Background(), generateOptions{remote: "passthrough:///bufnet", timeout: 5}, command,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)

	local, err := scenarios.Generate(context.Background(), command)
	require.NoError(t, err)

	assert.Equal(t, local.Paths, remote.Paths)
	assert.Equal(t, local.Times, remote.Times)
	assert.Equal(t, int64(42), remote.Seed)
	assert.True(t, remote.Seeded)
	assert.Equal(t, 100, remote.Steps)
	assert.Equal(t, local.Advisories, remote.Advisories)
}
