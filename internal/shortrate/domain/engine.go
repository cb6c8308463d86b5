package domain

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
	"golang.org/x/sync/errgroup"
)

// ShortRateModel 单因子短期利率模型：共享漂移项，扩散项各不相同
type ShortRateModel interface {
	// Kind 模型类型
	Kind() ModelKind
	// Parameters 模型系数
	Parameters() ModelParameters
	// Step 由 r[i] 与布朗增量 dW[i] 计算 r[i+1]
	Step(r, dW float64) float64
	// Advisories 非致命提示（例如 CIR 的 Feller 条件）
	Advisories() []Advisory
}

// Vasicek dr = a(b−r)dt + σ·dW，允许负利率
type Vasicek struct {
	params ModelParameters
}

// NewVasicek 创建 Vasicek 模型
func NewVasicek(params ModelParameters) *Vasicek {
	return &Vasicek{params: params}
}

func (v *Vasicek) Kind() ModelKind { return ModelVasicek }

func (v *Vasicek) Parameters() ModelParameters { return v.params }

func (v *Vasicek) Advisories() []Advisory { return nil }

func (v *Vasicek) Step(r, dW float64) float64 {
	return r + v.params.drift(r) + v.params.sigma*dW
}

// CIR dr = a(b−r)dt + σ·sqrt(r)·dW with full truncation: the radicand is
// floored at zero, the rate itself is left as computed.
type CIR struct {
	params ModelParameters
}

// NewCIR 创建 CIR 模型
func NewCIR(params ModelParameters) *CIR {
	return &CIR{params: params}
}

func (c *CIR) Kind() ModelKind { return ModelCIR }

func (c *CIR) Parameters() ModelParameters { return c.params }

func (c *CIR) Step(r, dW float64) float64 {
	return r + c.params.drift(r) + c.params.sigma*math.Sqrt(math.Max(r, 0))*dW
}

func (c *CIR) Advisories() []Advisory {
	if c.params.FellerSatisfied() {
		return nil
	}
	return []Advisory{newFellerWarning(c.params)}
}

// NewModel 按模型类型构造不可变模型实例
func NewModel(kind ModelKind, params ModelParameters) (ShortRateModel, error) {
	switch kind {
	case ModelVasicek:
		return NewVasicek(params), nil
	case ModelCIR:
		return NewCIR(params), nil
	default:
		_, err := ParseModelKind(string(kind))
		return nil, err
	}
}

// PathGenerator Euler–Maruyama 路径生成器，无状态，可并发复用
type PathGenerator struct {
	workers int
}

// NewPathGenerator creates a generator that fans columns out over at most
// workers goroutines; workers <= 0 means GOMAXPROCS.
func NewPathGenerator(workers int) *PathGenerator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PathGenerator{workers: workers}
}

// GenerationResult 一次生成的结果
type GenerationResult struct {
	Model      ModelKind
	Paths      *PathMatrix
	Seed       int64
	Advisories []Advisory
}

// Generate validates the parameters and the scenario, draws the increments
// and runs the recurrence. Nothing is allocated or drawn before validation
// passes. A recurrence that leaves the finite range fails with
// ErrNumericalOverflow instead of returning a grid holding ±Inf or NaN.
func (g *PathGenerator) Generate(model ShortRateModel, scenario Scenario) (*GenerationResult, error) {
	params := model.Parameters()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	m, err := scenario.Steps(params.dt)
	if err != nil {
		return nil, err
	}
	n := scenario.N
	seed := resolveSeed(scenario.Seed)

	dW := drawIncrements(seed, m, n, params.dt)
	grid := mat.NewDense(m+1, n, nil)
	for j := 0; j < n; j++ {
		grid.Set(0, j, scenario.R0)
	}

	g.evolve(model, grid, dW)
	if step, path, ok := firstNonFinite(grid); ok {
		return nil, fmt.Errorf("%w: path %d diverged at step %d (a·dt=%g), reduce dt or a",
			ErrNumericalOverflow, path, step, params.a*params.dt)
	}

	return &GenerationResult{
		Model:      model.Kind(),
		Paths:      newPathMatrix(grid, params.dt),
		Seed:       seed,
		Advisories: model.Advisories(),
	}, nil
}

// evolve 按列分片并行推进；每列内部严格按时间顺序
func (g *PathGenerator) evolve(model ShortRateModel, grid, dW *mat.Dense) {
	rows, n := grid.Dims()
	raw := grid.RawMatrix()
	inc := dW.RawMatrix()

	workers := min(g.workers, n)
	chunk := (n + workers - 1) / workers

	var eg errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		eg.Go(func() error {
			for i := 0; i < rows-1; i++ {
				cur := raw.Data[i*raw.Stride : i*raw.Stride+n]
				next := raw.Data[(i+1)*raw.Stride : (i+1)*raw.Stride+n]
				noise := inc.Data[i*inc.Stride : i*inc.Stride+n]
				for j := lo; j < hi; j++ {
					next[j] = model.Step(cur[j], noise[j])
				}
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// firstNonFinite 返回首个 ±Inf/NaN 所在的 (step, path)
func firstNonFinite(grid *mat.Dense) (int, int, bool) {
	raw := grid.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
