package application

import (
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
)

// GenerateScenarioCommand 路径生成命令
type GenerateScenarioCommand struct {
	Model string
	Dt    float64
	A     float64
	B     float64
	Sigma float64
	R0    float64
	T     float64
	N     int
	// Seed 为 nil 时使用新种子
	Seed *int64
}

// ScenarioDTO 路径生成结果，paths 为路径优先布局 n×(m+1)
type ScenarioDTO struct {
	Model      string            `json:"model"`
	Seed       int64             `json:"seed,string"`
	Seeded     bool              `json:"seeded"`
	Steps      int               `json:"steps"`
	NumPaths   int               `json:"num_paths"`
	Horizon    float64           `json:"horizon"`
	Times      []float64         `json:"times"`
	Paths      [][]float64       `json:"paths"`
	Advisories []domain.Advisory `json:"advisories"`
}

// FellerViolated 是否带有 Feller 条件提示
func (d *ScenarioDTO) FellerViolated() bool {
	return domain.HasAdvisory(d.Advisories, domain.AdvisoryFellerCondition)
}

// InterestRateDTO keeps the column names of the historical rate table.
type InterestRateDTO struct {
	BaseDate string  `json:"BASE_DATE"`
	Maturity string  `json:"MATURITY"`
	Value    float64 `json:"VALUE"`
}

func toScenarioDTO(res *domain.GenerationResult, seeded bool) *ScenarioDTO {
	advisories := res.Advisories
	if advisories == nil {
		advisories = []domain.Advisory{}
	}
	return &ScenarioDTO{
		Model:      string(res.Model),
		Seed:       res.Seed,
		Seeded:     seeded,
		Steps:      res.Paths.Steps(),
		NumPaths:   res.Paths.NumPaths(),
		Horizon:    res.Paths.Horizon(),
		Times:      res.Paths.Times(),
		Paths:      res.Paths.PathMajor(),
		Advisories: advisories,
	}
}

func toInterestRateDTOs(rates []*domain.InterestRate) []*InterestRateDTO {
	out := make([]*InterestRateDTO, 0, len(rates))
	for _, r := range rates {
		out = append(out, &InterestRateDTO{
			BaseDate: r.BaseDate,
			Maturity: r.Maturity,
			Value:    r.Value.InexactFloat64(),
		})
	}
	return out
}
