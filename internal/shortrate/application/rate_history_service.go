package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/pkg/logger"
	"github.com/wyfcoding/shortrate/pkg/metrics"
)

const (
	minYear = 1900
	maxYear = 9999
)

// RateHistoryQueryService 历史利率查询（Queries），带 Redis 读缓存
type RateHistoryQueryService struct {
	repo     domain.RateHistoryRepository
	readRepo domain.RateHistoryReadRepository
	metrics  *metrics.Metrics
	bondType string
}

// NewRateHistoryQueryService 构造函数；readRepo 与 m 可为 nil
func NewRateHistoryQueryService(repo domain.RateHistoryRepository, readRepo domain.RateHistoryReadRepository, m *metrics.Metrics, bondType string) *RateHistoryQueryService {
	if bondType == "" {
		bondType = domain.DefaultBondType
	}
	return &RateHistoryQueryService{
		repo:     repo,
		readRepo: readRepo,
		metrics:  m,
		bondType: bondType,
	}
}

// BondType 查询使用的债券类型
func (s *RateHistoryQueryService) BondType() string {
	return s.bondType
}

// GetRatesByYear returns every observation whose base date falls in year.
// Cache failures fall through to the database.
func (s *RateHistoryQueryService) GetRatesByYear(ctx context.Context, year int) ([]*InterestRateDTO, error) {
	if year < minYear || year > maxYear {
		return nil, fmt.Errorf("%w: %d is outside %d..%d", domain.ErrInvalidYear, year, minYear, maxYear)
	}

	if s.readRepo != nil {
		cached, found, err := s.readRepo.Get(ctx, s.bondType, year)
		switch {
		case err != nil:
			logger.Warn(ctx, "rate cache read failed", "year", year, "error", err)
		case found:
			s.recordLookup(true)
			return toInterestRateDTOs(cached), nil
		default:
			s.recordLookup(false)
		}
	}

	loaded := logger.LogDuration(ctx, "rate history loaded", "year", year, "bond_type", s.bondType)
	rates, err := s.repo.ListByYear(ctx, s.bondType, year)
	if err != nil {
		return nil, fmt.Errorf("list rates for %d: %w", year, err)
	}
	loaded()

	if s.readRepo != nil {
		if err := s.readRepo.Save(ctx, s.bondType, year, rates); err != nil {
			logger.Warn(ctx, "rate cache write failed", "year", year, "error", err)
		}
	}
	return toInterestRateDTOs(rates), nil
}

func (s *RateHistoryQueryService) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}
