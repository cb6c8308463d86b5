package domain

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// pcgStream fixes the PCG increment so a seed alone determines the stream.
const pcgStream uint64 = 0x9e3779b97f4a7c15

// NewSeed draws a fresh non-negative seed from the runtime's OS-seeded
// generator. Every unseeded call gets its own seed.
func NewSeed() int64 {
	return rand.Int64()
}

// resolveSeed 返回调用方指定的种子，缺省时返回新种子
func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return NewSeed()
}

// newSource 由种子构造确定性的随机源
func newSource(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), pcgStream)
}

// drawIncrements fills an m×n grid with Brownian increments dW ~ N(0, dt),
// step-major then path, so the grid depends only on the seed.
func drawIncrements(seed int64, m, n int, dt float64) *mat.Dense {
	normal := distuv.Normal{Mu: 0, Sigma: math.Sqrt(dt), Src: newSource(seed)}
	data := make([]float64, m*n)
	for k := range data {
		data[k] = normal.Rand()
	}
	return mat.NewDense(m, n, data)
}
