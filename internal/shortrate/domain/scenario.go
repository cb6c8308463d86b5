package domain

import (
	"fmt"
	"math"
)

// stepTolerance absorbs the rounding of t/dt so that exact multiples such as
// 100 / (1/12) are not truncated to one step short.
const stepTolerance = 1e-9

// Scenario 单次路径生成的场景输入
type Scenario struct {
	// R0 初始短期利率
	R0 float64
	// N 路径数量
	N int
	// T 模拟期限（年）
	T float64
	// Seed 随机种子，nil 表示每次调用使用新的熵源种子
	Seed *int64
}

// Validate 校验场景本身（不依赖模型参数）
func (s Scenario) Validate() error {
	switch {
	case s.N < 1:
		return fmt.Errorf("%w: n must be >= 1, got %d", ErrInvalidScenario, s.N)
	case math.IsNaN(s.T) || math.IsInf(s.T, 0) || s.T <= 0:
		return fmt.Errorf("%w: t must be a finite value > 0, got %v", ErrInvalidScenario, s.T)
	case math.IsNaN(s.R0) || math.IsInf(s.R0, 0):
		return fmt.Errorf("%w: r0 must be finite, got %v", ErrInvalidScenario, s.R0)
	}
	return nil
}

// Steps returns m = floor(t/dt). A t that is not a multiple of dt is
// truncated; the simulated horizon is then Steps*dt.
func (s Scenario) Steps(dt float64) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	ratio := s.T / dt
	m := math.Floor(ratio * (1 + stepTolerance))
	if m < 1 {
		return 0, fmt.Errorf("%w: horizon t=%v is shorter than one step dt=%v", ErrInvalidScenario, s.T, dt)
	}
	if m > math.MaxInt32 {
		return 0, fmt.Errorf("%w: t/dt=%v steps is too many", ErrInvalidScenario, m)
	}
	return int(m), nil
}
