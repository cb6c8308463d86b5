package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidYear 查询年份非法
var ErrInvalidYear = errors.New("invalid year")

// DefaultBondType 历史利率表默认债券类型（国债）
const DefaultBondType = "KTB"

// InterestRate 历史收益率曲线观测值，只读外部数据，引擎不会访问
type InterestRate struct {
	// BaseDate 基准日期 (YYYYMMDD 或 YYYY-MM-DD)
	BaseDate string `json:"base_date"`
	// Maturity 期限
	Maturity string `json:"maturity"`
	// Value 收益率
	Value decimal.Decimal `json:"value"`
	// BondType 债券类型
	BondType string `json:"bond_type"`
}

// RateHistoryRepository 历史利率仓储接口
type RateHistoryRepository interface {
	ListByYear(ctx context.Context, bondType string, year int) ([]*InterestRate, error)
}

// RateHistoryReadRepository 基于 Redis 的历史利率读缓存
type RateHistoryReadRepository interface {
	Get(ctx context.Context, bondType string, year int) ([]*InterestRate, bool, error)
	Save(ctx context.Context, bondType string, year int, rates []*InterestRate) error
}
