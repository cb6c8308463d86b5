package mysql

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"gorm.io/gorm"
)

// InterestRatePO 历史利率表行
type InterestRatePO struct {
	ID       uint            `gorm:"primarykey"`
	BaseDate string          `gorm:"column:base_date;type:varchar(10);index:idx_bond_date;not null"`
	Maturity string          `gorm:"column:maturity;type:varchar(10);not null"`
	Value    decimal.Decimal `gorm:"column:value;type:decimal(12,6);not null"`
	BondType string          `gorm:"column:bond_type;type:varchar(16);index:idx_bond_date;not null"`
}

func (InterestRatePO) TableName() string { return "int_rate" }

func (po *InterestRatePO) ToDomain() *domain.InterestRate {
	return &domain.InterestRate{
		BaseDate: po.BaseDate,
		Maturity: po.Maturity,
		Value:    po.Value,
		BondType: po.BondType,
	}
}

type rateHistoryRepository struct {
	db *gorm.DB
}

// NewRateHistoryRepository works for both the MySQL and PostgreSQL dialects;
// the query only uses portable SQL.
func NewRateHistoryRepository(db *gorm.DB) domain.RateHistoryRepository {
	return &rateHistoryRepository{db: db}
}

func (r *rateHistoryRepository) ListByYear(ctx context.Context, bondType string, year int) ([]*domain.InterestRate, error) {
	var pos []*InterestRatePO
	err := r.db.WithContext(ctx).
		Where("bond_type = ?", bondType).
		Where("base_date LIKE ?", fmt.Sprintf("%04d%%", year)).
		Order("base_date, maturity").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	res := make([]*domain.InterestRate, len(pos))
	for i, po := range pos {
		res[i] = po.ToDomain()
	}
	return res, nil
}
