package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPtr(s int64) *int64 { return &s }

func mustParams(t *testing.T, dt, a, b, sigma float64) ModelParameters {
	t.Helper()
	p, err := NewModelParameters(dt, a, b, sigma)
	require.NoError(t, err)
	return p
}

func TestNewModelParameters_Validation(t *testing.T) {
	tests := []struct {
		name            string
		dt, a, b, sigma float64
		wantErr         bool
	}{
		{name: "valid", dt: 1.0 / 12, a: 0.3, b: 0.04, sigma: 0.25},
		{name: "zero sigma", dt: 1.0 / 12, a: 0.3, b: 0.04, sigma: 0},
		{name: "negative a accepted", dt: 1.0 / 12, a: -0.1, b: 0.04, sigma: 0.1},
		{name: "zero dt", dt: 0, a: 0.3, b: 0.04, sigma: 0.25, wantErr: true},
		{name: "negative dt", dt: -0.1, a: 0.3, b: 0.04, sigma: 0.25, wantErr: true},
		{name: "negative sigma", dt: 0.1, a: 0.3, b: 0.04, sigma: -0.01, wantErr: true},
		{name: "nan b", dt: 0.1, a: 0.3, b: math.NaN(), sigma: 0.1, wantErr: true},
		{name: "inf a", dt: 0.1, a: math.Inf(1), b: 0.04, sigma: 0.1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModelParameters(tt.dt, tt.a, tt.b, tt.sigma)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameters)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScenarioSteps(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		dt       float64
		want     int
		wantErr  bool
	}{
		{name: "monthly over 100y", scenario: Scenario{N: 1, T: 100}, dt: 1.0 / 12, want: 1200},
		{name: "exact tenth", scenario: Scenario{N: 1, T: 1}, dt: 0.1, want: 10},
		{name: "truncates remainder", scenario: Scenario{N: 1, T: 1.05}, dt: 0.1, want: 10},
		{name: "single step", scenario: Scenario{N: 1, T: 0.5}, dt: 0.5, want: 1},
		{name: "shorter than a step", scenario: Scenario{N: 1, T: 0.05}, dt: 0.1, wantErr: true},
		{name: "zero horizon", scenario: Scenario{N: 1, T: 0}, dt: 0.1, wantErr: true},
		{name: "zero paths", scenario: Scenario{N: 0, T: 1}, dt: 0.1, wantErr: true},
		{name: "nan r0", scenario: Scenario{N: 1, T: 1, R0: math.NaN()}, dt: 0.1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.scenario.Steps(tt.dt)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScenario)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestGenerate_MonthlyCenturyGrid(t *testing.T) {
	params := mustParams(t, 1.0/12, 0.3, 0.04, 0.25)
	gen := NewPathGenerator(0)

	res, err := gen.Generate(NewVasicek(params), Scenario{R0: 0.01, N: 20, T: 100, Seed: seedPtr(42)})
	require.NoError(t, err)

	assert.Equal(t, ModelVasicek, res.Model)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, 1200, res.Paths.Steps())
	assert.Equal(t, 20, res.Paths.NumPaths())
	for j := 0; j < 20; j++ {
		assert.Equal(t, 0.01, res.Paths.At(0, j))
	}

	paths := res.Paths.PathMajor()
	require.Len(t, paths, 20)
	for _, p := range paths {
		require.Len(t, p, 1201)
		assert.Equal(t, 0.01, p[0])
	}
	assert.InDelta(t, 100.0, res.Paths.Horizon(), 1e-9)
	assert.Empty(t, res.Advisories)
}

func TestGenerate_FollowsRecurrence(t *testing.T) {
	params := mustParams(t, 0.25, 0.5, 0.03, 0.2)
	const (
		seed = 7
		n    = 5
		m    = 8
	)
	models := []ShortRateModel{NewVasicek(params), NewCIR(params)}

	for _, model := range models {
		t.Run(string(model.Kind()), func(t *testing.T) {
			res, err := NewPathGenerator(3).Generate(model, Scenario{R0: 0.02, N: n, T: 2, Seed: seedPtr(seed)})
			require.NoError(t, err)

			dW := drawIncrements(seed, m, n, params.Dt())
			for j := 0; j < n; j++ {
				r := 0.02
				for i := 0; i < m; i++ {
					w := dW.At(i, j)
					var want float64
					if model.Kind() == ModelCIR {
						want = r + 0.5*(0.03-r)*0.25 + 0.2*math.Sqrt(math.Max(r, 0))*w
					} else {
						want = r + 0.5*(0.03-r)*0.25 + 0.2*w
					}
					assert.InDelta(t, want, res.Paths.At(i+1, j), 1e-15, "step %d path %d", i+1, j)
					r = want
				}
			}
		})
	}
}

func TestGenerate_Determinism(t *testing.T) {
	params := mustParams(t, 1.0/12, 0.3, 0.04, 0.25)
	scenario := Scenario{R0: 0.01, N: 37, T: 10, Seed: seedPtr(12345)}

	first, err := NewPathGenerator(1).Generate(NewCIR(params), scenario)
	require.NoError(t, err)
	second, err := NewPathGenerator(8).Generate(NewCIR(params), scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Paths.PathMajor(), second.Paths.PathMajor())
}

func TestGenerate_UnseededDiffers(t *testing.T) {
	params := mustParams(t, 1.0/12, 0.3, 0.04, 0.25)
	scenario := Scenario{R0: 0.01, N: 4, T: 5}
	gen := NewPathGenerator(0)

	first, err := gen.Generate(NewVasicek(params), scenario)
	require.NoError(t, err)
	second, err := gen.Generate(NewVasicek(params), scenario)
	require.NoError(t, err)

	assert.NotEqual(t, first.Seed, second.Seed)
	assert.NotEqual(t, first.Paths.PathMajor(), second.Paths.PathMajor())
}

func TestGenerate_VasicekGoesNegative(t *testing.T) {
	params := mustParams(t, 1.0/12, 0.1, 0.02, 0.5)
	res, err := NewPathGenerator(0).Generate(NewVasicek(params), Scenario{R0: 0.01, N: 20, T: 50, Seed: seedPtr(1)})
	require.NoError(t, err)

	negative := false
	for i := 0; i <= res.Paths.Steps() && !negative; i++ {
		for _, v := range res.Paths.Row(i) {
			if v < 0 {
				negative = true
				break
			}
		}
	}
	assert.True(t, negative, "expected an unfloored Vasicek path to cross zero")
}

func TestCIRStep_TruncatesRadicand(t *testing.T) {
	params := mustParams(t, 0.1, 0.1, 0.02, 0.5)
	cir := NewCIR(params)

	next := cir.Step(-0.05, 1.5)
	assert.False(t, math.IsNaN(next))
	assert.InDelta(t, -0.05+0.1*(0.02+0.05)*0.1, next, 1e-15)
}

func TestGenerate_CIRStaysFinite(t *testing.T) {
	params := mustParams(t, 1.0/12, 0.1, 0.02, 0.5)
	res, err := NewPathGenerator(0).Generate(NewCIR(params), Scenario{R0: 0.001, N: 50, T: 50, Seed: seedPtr(3)})
	require.NoError(t, err)

	for i := 0; i <= res.Paths.Steps(); i++ {
		for _, v := range res.Paths.Row(i) {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "step %d", i)
		}
	}
}

func TestCIR_FellerAdvisory(t *testing.T) {
	violated := mustParams(t, 1.0/12, 0.1, 0.02, 0.5)
	res, err := NewPathGenerator(0).Generate(NewCIR(violated), Scenario{R0: 0.01, N: 2, T: 1, Seed: seedPtr(1)})
	require.NoError(t, err)
	assert.True(t, HasAdvisory(res.Advisories, AdvisoryFellerCondition))

	satisfied := mustParams(t, 1.0/12, 0.3, 0.04, 0.1)
	res, err = NewPathGenerator(0).Generate(NewCIR(satisfied), Scenario{R0: 0.01, N: 2, T: 1, Seed: seedPtr(1)})
	require.NoError(t, err)
	assert.Empty(t, res.Advisories)

	// Vasicek never reports it, whatever the coefficients.
	assert.Empty(t, NewVasicek(violated).Advisories())
}

func TestGenerate_SinglePath(t *testing.T) {
	params := mustParams(t, 0.5, 0.3, 0.04, 0.1)
	res, err := NewPathGenerator(16).Generate(NewVasicek(params), Scenario{R0: 0.03, N: 1, T: 5, Seed: seedPtr(9)})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Paths.NumPaths())
	assert.Equal(t, 10, res.Paths.Steps())
	assert.Len(t, res.Paths.Path(0), 11)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}, res.Paths.Times())
}

func TestGenerate_ZeroSigmaIsDeterministicDrift(t *testing.T) {
	params := mustParams(t, 1, 0.5, 0.04, 0)
	res, err := NewPathGenerator(0).Generate(NewVasicek(params), Scenario{R0: 0, N: 3, T: 2})
	require.NoError(t, err)

	for j := 0; j < 3; j++ {
		assert.InDeltaSlice(t, []float64{0, 0.02, 0.03}, res.Paths.Path(j), 1e-15)
	}
}

func TestGenerate_InvalidScenario(t *testing.T) {
	params := mustParams(t, 0.1, 0.3, 0.04, 0.1)
	gen := NewPathGenerator(0)

	_, err := gen.Generate(NewVasicek(params), Scenario{R0: 0.01, N: 5, T: 0})
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = gen.Generate(NewCIR(params), Scenario{R0: 0.01, N: 0, T: 1})
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestNewModel(t *testing.T) {
	params := mustParams(t, 0.1, 0.3, 0.04, 0.1)

	kind, err := ParseModelKind(" CIR ")
	require.NoError(t, err)
	model, err := NewModel(kind, params)
	require.NoError(t, err)
	assert.Equal(t, ModelCIR, model.Kind())
	assert.Equal(t, params, model.Parameters())

	_, err = ParseModelKind("hull-white")
	assert.ErrorIs(t, err, ErrUnknownModel)
	_, err = NewModel(ModelKind("hull-white"), params)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestGenerate_StiffCoefficientsOverflow(t *testing.T) {
	params := mustParams(t, 1, 1e5, 0, 0.01)
	gen := NewPathGenerator(0)
	scenario := Scenario{R0: 1, N: 2, T: 200, Seed: seedPtr(1)}

	for _, model := range []ShortRateModel{NewVasicek(params), NewCIR(params)} {
		t.Run(string(model.Kind()), func(t *testing.T) {
			res, err := gen.Generate(model, scenario)
			assert.ErrorIs(t, err, ErrNumericalOverflow)
			assert.Nil(t, res)
		})
	}
}

func TestGenerate_ZeroValueParameters(t *testing.T) {
	gen := NewPathGenerator(0)

	for _, model := range []ShortRateModel{NewVasicek(ModelParameters{}), NewCIR(ModelParameters{})} {
		t.Run(string(model.Kind()), func(t *testing.T) {
			_, err := gen.Generate(model, Scenario{R0: 0.01, N: 5, T: 1, Seed: seedPtr(7)})
			assert.ErrorIs(t, err, ErrInvalidParameters)
			assert.NotErrorIs(t, err, ErrInvalidScenario)
		})
	}
}
