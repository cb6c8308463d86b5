package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/cache"
)

func newTestRepo(t *testing.T) (domain.RateHistoryReadRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateHistoryRedisRepository(cache.NewFromClient(client), 10*time.Minute), mr
}

func TestRateHistoryRedisRepository(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "KTB", 2020)
	require.NoError(t, err)
	assert.False(t, found)

	rates := []*domain.InterestRate{
		{BaseDate: "20200102", Maturity: "3Y", Value: decimal.RequireFromString("1.321"), BondType: "KTB"},
	}
	require.NoError(t, repo.Save(ctx, "KTB", 2020, rates))
	assert.True(t, mr.Exists("shortrate:rates:KTB:2020"))
	assert.Equal(t, 10*time.Minute, mr.TTL("shortrate:rates:KTB:2020"))

	got, found, err := repo.Get(ctx, "KTB", 2020)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, got, 1)
	assert.True(t, rates[0].Value.Equal(got[0].Value))
	assert.Equal(t, "3Y", got[0].Maturity)
}

func TestRateHistoryRedisRepository_CachesEmptyYear(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "KTB", 1950, nil))

	got, found, err := repo.Get(ctx, "KTB", 1950)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}
