package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/cache"
)

const rateKeyPrefix = "shortrate:rates:"

// RateHistoryRedisRepository 历史利率读缓存，按债券类型与年份整块缓存
type RateHistoryRedisRepository struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRateHistoryRedisRepository 创建读缓存仓储
func NewRateHistoryRedisRepository(c *cache.RedisCache, ttl time.Duration) domain.RateHistoryReadRepository {
	return &RateHistoryRedisRepository{cache: c, ttl: ttl}
}

func rateKey(bondType string, year int) string {
	return fmt.Sprintf("%s%s:%d", rateKeyPrefix, bondType, year)
}

func (r *RateHistoryRedisRepository) Get(ctx context.Context, bondType string, year int) ([]*domain.InterestRate, bool, error) {
	var rates []*domain.InterestRate
	found, err := r.cache.GetJSON(ctx, rateKey(bondType, year), &rates)
	if err != nil || !found {
		return nil, false, err
	}
	return rates, true, nil
}

func (r *RateHistoryRedisRepository) Save(ctx context.Context, bondType string, year int, rates []*domain.InterestRate) error {
	if rates == nil {
		rates = []*domain.InterestRate{}
	}
	return r.cache.SetJSON(ctx, rateKey(bondType, year), rates, r.ttl)
}
