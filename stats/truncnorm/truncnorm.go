// Package truncnorm implements numerically stable log-densities for the
// standard normal and for normals truncated to an interval.
//
// All bounds passed to the package level functions are standardised,
// i.e. a = (lower - loc) / scale. Infinite bounds are valid.
package truncnorm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// asymptoticCutoff 以下では erfc がアンダーフローに近づくため漸近展開を使う
const asymptoticCutoff = -30.0

var logSqrt2Pi = 0.5 * math.Log(2*math.Pi)

// LogNormalPDF returns log φ(z).
func LogNormalPDF(z float64) float64 {
	if math.IsInf(z, 0) {
		return math.Inf(-1)
	}
	return distuv.UnitNormal.LogProb(z)
}

// NormalCDF returns Φ(z).
func NormalCDF(z float64) float64 {
	return distuv.UnitNormal.CDF(z)
}

// LogNormalCDF returns log Φ(z), accurate in both tails.
func LogNormalCDF(z float64) float64 {
	switch {
	case math.IsNaN(z):
		return math.NaN()
	case z > 0:
		// Φ(z) = 1 - Φ(-z)
		return math.Log1p(-0.5 * math.Erfc(z/math.Sqrt2))
	case z >= asymptoticCutoff:
		return math.Log(0.5 * math.Erfc(-z/math.Sqrt2))
	case math.IsInf(z, -1):
		return math.Inf(-1)
	default:
		// Φ(z) ~ φ(z)/(-z) * (1 - 1/z² + 3/z⁴ - 15/z⁶)
		z2 := z * z
		series := 1 - 1/z2 + 3/(z2*z2) - 15/(z2*z2*z2)
		return -0.5*z2 - logSqrt2Pi - math.Log(-z) + math.Log(series)
	}
}

// LogDelta returns log(Φ(b) - Φ(a)) for a < b, and -Inf when a >= b.
func LogDelta(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a >= b {
		return math.Inf(-1)
	}
	switch {
	case b <= 0:
		// 両端が左裾
		lb := LogNormalCDF(b)
		return lb + errors.Log1mExp(LogNormalCDF(a)-lb)
	case a >= 0:
		// 両端が右裾: Φ(b) - Φ(a) = Φ(-a) - Φ(-b)
		la := LogNormalCDF(-a)
		return la + errors.Log1mExp(LogNormalCDF(-b)-la)
	default:
		// 0 をまたぐ場合は両側の裾質量を 1 から引く
		return math.Log1p(-(NormalCDF(a) + NormalCDF(-b)))
	}
}

// LogProb returns the log-density at x of a normal(loc, scale) truncated to
// the standardised window [a, b]. Points outside the window yield -Inf.
func LogProb(x, a, b, loc, scale float64) float64 {
	z := (x - loc) / scale
	if z < a || z > b {
		return math.Inf(-1)
	}
	return LogNormalPDF(z) - LogDelta(a, b) - math.Log(scale)
}

// InverseMills returns φ(z)/Φ(z) computed in log space.
func InverseMills(z float64) float64 {
	if math.IsInf(z, -1) {
		return math.Inf(1)
	}
	return math.Exp(LogNormalPDF(z) - LogNormalCDF(z))
}

// DensityRatio returns φ(z)/exp(logMass), treating φ(±Inf) as 0.
func DensityRatio(z, logMass float64) float64 {
	if math.IsInf(z, 0) {
		return 0
	}
	return math.Exp(LogNormalPDF(z) - logMass)
}

// TruncatedNormal is a normal distribution with location Loc and scale
// Scale restricted to [Lower, Upper]. The bounds are in data units.
type TruncatedNormal struct {
	Loc   float64
	Scale float64
	Lower float64
	Upper float64
}

// Validate checks that the distribution parameters are usable.
func (t TruncatedNormal) Validate() error {
	if !(t.Scale > 0) || math.IsInf(t.Scale, 0) {
		return errors.NewValidationError("scale", "must be positive and finite", t.Scale)
	}
	if math.IsNaN(t.Loc) || math.IsInf(t.Loc, 0) {
		return errors.NewValidationError("loc", "must be finite", t.Loc)
	}
	if math.IsNaN(t.Lower) || math.IsNaN(t.Upper) || t.Lower >= t.Upper {
		return errors.NewValidationError("bounds", "lower must be less than upper", [2]float64{t.Lower, t.Upper})
	}
	return nil
}

func (t TruncatedNormal) standardised() (a, b float64) {
	return (t.Lower - t.Loc) / t.Scale, (t.Upper - t.Loc) / t.Scale
}

// LogProb returns the log-density at x.
func (t TruncatedNormal) LogProb(x float64) float64 {
	a, b := t.standardised()
	return LogProb(x, a, b, t.Loc, t.Scale)
}

// Prob returns the density at x.
func (t TruncatedNormal) Prob(x float64) float64 {
	return math.Exp(t.LogProb(x))
}

// Mean returns the mean of the truncated distribution.
func (t TruncatedNormal) Mean() float64 {
	a, b := t.standardised()
	logZ := LogDelta(a, b)
	return t.Loc + t.Scale*(DensityRatio(a, logZ)-DensityRatio(b, logZ))
}

// Variance returns the variance of the truncated distribution.
func (t TruncatedNormal) Variance() float64 {
	a, b := t.standardised()
	logZ := LogDelta(a, b)
	ra, rb := DensityRatio(a, logZ), DensityRatio(b, logZ)
	d := ra - rb
	return t.Scale * t.Scale * (1 + mulFinite(a, ra) - mulFinite(b, rb) - d*d)
}

// mulFinite は z*r を返す。z が無限大のとき r は 0 なので積も 0 とする
func mulFinite(z, r float64) float64 {
	if math.IsInf(z, 0) {
		return 0
	}
	return z * r
}

// Rand draws a sample by inverse-CDF sampling. Windows in the right tail
// are sampled through the reflected distribution to keep precision.
func (t TruncatedNormal) Rand(rng *rand.Rand) float64 {
	a, b := t.standardised()
	reflect := a >= 0
	if reflect {
		a, b = -b, -a
	}
	pa, pb := NormalCDF(a), NormalCDF(b)
	z := b // 質量が表現できないほど裾にある場合は最頻値側の端点
	if pb > pa {
		for i := 0; i < maxRandAttempts; i++ {
			c := distuv.UnitNormal.Quantile(pa + rng.Float64()*(pb-pa))
			if !math.IsInf(c, 0) && !math.IsNaN(c) {
				z = math.Min(math.Max(c, a), b)
				break
			}
		}
	}
	if reflect {
		z = -z
	}
	return t.Loc + t.Scale*z
}

const maxRandAttempts = 64
