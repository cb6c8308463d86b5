// Package domain 短期利率模型（Vasicek、CIR）的领域模型与 Euler–Maruyama 路径生成引擎
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidParameters 模型系数非法 (dt<=0, sigma<0, 非有限值)
	ErrInvalidParameters = errors.New("invalid model parameters")
	// ErrInvalidScenario 场景输入非法 (n<1, t<=0, 步数<1)
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrUnknownModel 未知的模型类型
	ErrUnknownModel = errors.New("unknown short-rate model")
	// ErrNumericalOverflow 递推发散，网格中出现 ±Inf 或 NaN
	ErrNumericalOverflow = errors.New("numerical overflow")
)

// ModelKind 模型类型
type ModelKind string

const (
	ModelVasicek ModelKind = "vasicek" // Ornstein-Uhlenbeck, 常数波动率
	ModelCIR     ModelKind = "cir"     // 均值回复平方根过程
)

// ParseModelKind 解析模型名称，大小写不敏感
func ParseModelKind(name string) (ModelKind, error) {
	switch ModelKind(strings.ToLower(strings.TrimSpace(name))) {
	case ModelVasicek:
		return ModelVasicek, nil
	case ModelCIR:
		return ModelCIR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

// ModelParameters SDE 的四个系数，构造后不可变
type ModelParameters struct {
	dt    float64
	a     float64
	b     float64
	sigma float64
}

// NewModelParameters validates the coefficients before any path is drawn.
// a is not required to be positive; a non-positive speed simply means the
// process does not revert.
func NewModelParameters(dt, a, b, sigma float64) (ModelParameters, error) {
	p := ModelParameters{dt: dt, a: a, b: b, sigma: sigma}
	if err := p.Validate(); err != nil {
		return ModelParameters{}, err
	}
	return p, nil
}

// Validate 校验系数；零值 ModelParameters 因 dt=0 不合法
func (p ModelParameters) Validate() error {
	switch {
	case math.IsNaN(p.dt) || math.IsInf(p.dt, 0) || p.dt <= 0:
		return fmt.Errorf("%w: dt must be a finite value > 0, got %v", ErrInvalidParameters, p.dt)
	case math.IsNaN(p.sigma) || math.IsInf(p.sigma, 0) || p.sigma < 0:
		return fmt.Errorf("%w: sigma must be a finite value >= 0, got %v", ErrInvalidParameters, p.sigma)
	case math.IsNaN(p.a) || math.IsInf(p.a, 0):
		return fmt.Errorf("%w: a must be finite, got %v", ErrInvalidParameters, p.a)
	case math.IsNaN(p.b) || math.IsInf(p.b, 0):
		return fmt.Errorf("%w: b must be finite, got %v", ErrInvalidParameters, p.b)
	}
	return nil
}

// Dt 时间步长（年）
func (p ModelParameters) Dt() float64 { return p.dt }

// A 均值回复速度
func (p ModelParameters) A() float64 { return p.a }

// B 长期均值水平 θ
func (p ModelParameters) B() float64 { return p.b }

// Sigma 波动率系数
func (p ModelParameters) Sigma() float64 { return p.sigma }

// drift 漂移项 a·(b − r)·dt
func (p ModelParameters) drift(r float64) float64 {
	return p.a * (p.b - r) * p.dt
}

// FellerSatisfied reports whether 2·a·b >= sigma².
func (p ModelParameters) FellerSatisfied() bool {
	return 2*p.a*p.b >= p.sigma*p.sigma
}
