package domain

import "gonum.org/v1/gonum/mat"

// PathMatrix is the time-major (m+1)×n grid of simulated rates: row i is
// time i·dt, column j is path j. Row 0 equals r0 in every column.
type PathMatrix struct {
	grid *mat.Dense
	dt   float64
}

func newPathMatrix(grid *mat.Dense, dt float64) *PathMatrix {
	return &PathMatrix{grid: grid, dt: dt}
}

// Steps 时间步数 m
func (p *PathMatrix) Steps() int {
	r, _ := p.grid.Dims()
	return r - 1
}

// NumPaths 路径数 n
func (p *PathMatrix) NumPaths() int {
	_, c := p.grid.Dims()
	return c
}

// At 第 step 步、第 path 条路径的利率
func (p *PathMatrix) At(step, path int) float64 {
	return p.grid.At(step, path)
}

// Horizon 实际模拟期限 m·dt
func (p *PathMatrix) Horizon() float64 {
	return float64(p.Steps()) * p.dt
}

// Times 采样时点 0, dt, …, m·dt
func (p *PathMatrix) Times() []float64 {
	times := make([]float64, p.Steps()+1)
	for i := range times {
		times[i] = float64(i) * p.dt
	}
	return times
}

// Row 返回第 step 步所有路径的利率副本
func (p *PathMatrix) Row(step int) []float64 {
	return mat.Row(nil, step, p.grid)
}

// Path 返回第 j 条路径的副本
func (p *PathMatrix) Path(j int) []float64 {
	return mat.Col(nil, j, p.grid)
}

// PathMajor transposes the grid into n sequences of length m+1, the layout
// the external interfaces use.
func (p *PathMatrix) PathMajor() [][]float64 {
	n := p.NumPaths()
	out := make([][]float64, n)
	for j := range out {
		out[j] = p.Path(j)
	}
	return out
}
