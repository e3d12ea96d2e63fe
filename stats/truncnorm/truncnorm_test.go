package truncnorm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

func TestLogNormalCDFBulk(t *testing.T) {
	for z := -5.0; z <= 5.0; z += 0.25 {
		want := math.Log(distuv.UnitNormal.CDF(z))
		assert.InDelta(t, want, LogNormalCDF(z), 1e-10, "z=%v", z)
	}
	assert.Equal(t, 0.0, LogNormalCDF(math.Inf(1)))
	assert.True(t, math.IsInf(LogNormalCDF(math.Inf(-1)), -1))
	assert.True(t, math.IsNaN(LogNormalCDF(math.NaN())))
}

func TestLogNormalCDFTails(t *testing.T) {
	prev := math.Inf(-1)
	for _, z := range []float64{-1e4, -1e3, -100, -40, -30.5, -30, -29.5, -10} {
		got := LogNormalCDF(z)
		require.False(t, math.IsInf(got, 0) || math.IsNaN(got), "z=%v", z)
		assert.Greater(t, got, prev, "z=%v", z)
		prev = got
	}

	// 漸近展開と erfc の切り替え点で連続
	assert.InDelta(t, LogNormalCDF(-30), LogNormalCDF(-30-1e-9), 1e-6)
	assert.InDelta(t, -804.6084420137538, LogNormalCDF(-40), 1e-6)

	// 右裾は log1p で 0 に近い値を保つ
	assert.InEpsilon(t, -0.5*math.Erfc(8/math.Sqrt2), LogNormalCDF(8), 1e-12)
}

func TestNormalCDF(t *testing.T) {
	assert.Equal(t, 0.5, NormalCDF(0))
	assert.InDelta(t, 0.9750021048517795, NormalCDF(1.96), 1e-15)
	assert.InDelta(t, 0.15865525393145707, NormalCDF(-1), 1e-15)
	assert.InDelta(t, 1.0, NormalCDF(-3)+NormalCDF(3), 1e-15)
	assert.Equal(t, 0.0, NormalCDF(math.Inf(-1)))
	assert.Equal(t, 1.0, NormalCDF(math.Inf(1)))
}

func TestLogDelta(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"straddling", -1, 2, math.Log(NormalCDF(2) - NormalCDF(-1))},
		{"left tail", -3, -1, math.Log(NormalCDF(-1) - NormalCDF(-3))},
		{"right tail", 0.5, 3, math.Log(NormalCDF(3) - NormalCDF(0.5))},
		{"lower half", -inf, 0, math.Log(0.5)},
		{"upper half", 0, inf, math.Log(0.5)},
		{"whole line", -inf, inf, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LogDelta(tt.a, tt.b), 1e-12)
			assert.InDelta(t, LogDelta(tt.a, tt.b), LogDelta(-tt.b, -tt.a), 1e-12)
		})
	}

	assert.True(t, math.IsInf(LogDelta(2, 1), -1))
	assert.True(t, math.IsInf(LogDelta(1, 1), -1))

	far := LogDelta(10, 11)
	require.False(t, math.IsInf(far, 0))
	assert.InDelta(t, LogNormalCDF(-10), far, 1e-3)
	assert.InDelta(t, far, LogDelta(-11, -10), 1e-12)
}

func TestLogProbOutsideWindow(t *testing.T) {
	assert.True(t, math.IsInf(LogProb(-1, 0, 1, 0, 1), -1))
	assert.True(t, math.IsInf(LogProb(2, 0, 1, 0, 1), -1))
	// 全区間では通常の正規分布に一致
	assert.InDelta(t, distuv.Normal{Mu: 1, Sigma: 2}.LogProb(0.3),
		LogProb(0.3, math.Inf(-1), math.Inf(1), 1, 2), 1e-12)
}

func TestInverseMills(t *testing.T) {
	for _, z := range []float64{-3, 0, 2} {
		want := distuv.UnitNormal.Prob(z) / distuv.UnitNormal.CDF(z)
		assert.InDelta(t, want, InverseMills(z), 1e-10)
	}
	// 左裾では λ(z) ≈ -z
	assert.InDelta(t, 50.0, InverseMills(-50), 0.05)
	assert.Equal(t, 0.0, InverseMills(math.Inf(1)))
	assert.True(t, math.IsInf(InverseMills(math.Inf(-1)), 1))
}

// integrate は台形則で f を [lo, hi] 上積分する
func integrate(f func(float64) float64, lo, hi float64, steps int) float64 {
	h := (hi - lo) / float64(steps)
	sum := 0.5 * (f(lo) + f(hi))
	for i := 1; i < steps; i++ {
		sum += f(lo + float64(i)*h)
	}
	return sum * h
}

func TestTruncatedNormalMoments(t *testing.T) {
	tests := []TruncatedNormal{
		{Loc: 1, Scale: 2, Lower: 0, Upper: 3},
		{Loc: -2, Scale: 0.5, Lower: -1, Upper: 1},
		{Loc: 0, Scale: 1, Lower: -10, Upper: 0.5},
	}
	for _, d := range tests {
		require.NoError(t, d.Validate())
		const steps = 20000
		mass := integrate(d.Prob, d.Lower, d.Upper, steps)
		assert.InDelta(t, 1.0, mass, 1e-4)

		mean := integrate(func(x float64) float64 { return x * d.Prob(x) }, d.Lower, d.Upper, steps)
		assert.InDelta(t, mean, d.Mean(), 1e-4)

		second := integrate(func(x float64) float64 { return x * x * d.Prob(x) }, d.Lower, d.Upper, steps)
		assert.InDelta(t, second-mean*mean, d.Variance(), 1e-4)
	}
}

func TestTruncatedNormalHalfLine(t *testing.T) {
	d := TruncatedNormal{Loc: 0, Scale: 1, Lower: 0, Upper: math.Inf(1)}
	assert.InDelta(t, math.Sqrt(2/math.Pi), d.Mean(), 1e-12)
	assert.InDelta(t, 1-2/math.Pi, d.Variance(), 1e-12)
}

func TestTruncatedNormalRand(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, d := range []TruncatedNormal{
		{Loc: 1, Scale: 2, Lower: 0, Upper: 3},
		{Loc: 0, Scale: 1, Lower: 4, Upper: math.Inf(1)},
		{Loc: 0, Scale: 1, Lower: math.Inf(-1), Upper: -3},
	} {
		const n = 20000
		var sum float64
		for i := 0; i < n; i++ {
			x := d.Rand(rng)
			require.GreaterOrEqual(t, x, d.Lower)
			require.LessOrEqual(t, x, d.Upper)
			sum += x
		}
		assert.InDelta(t, d.Mean(), sum/n, 0.05)
	}
}

func TestTruncatedNormalValidate(t *testing.T) {
	tests := []struct {
		name  string
		d     TruncatedNormal
		param string
	}{
		{"zero scale", TruncatedNormal{Scale: 0, Lower: 0, Upper: 1}, "scale"},
		{"infinite loc", TruncatedNormal{Loc: math.Inf(1), Scale: 1, Lower: 0, Upper: 1}, "loc"},
		{"empty window", TruncatedNormal{Scale: 1, Lower: 1, Upper: 1}, "bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			var valErr *errors.ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Equal(t, tt.param, valErr.ParamName)
		})
	}
}
