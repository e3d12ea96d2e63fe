// Package datasets は打ち切り・切断回帰のための合成データ生成器と
// JSON 形式のバッチファイルの読み書きを提供します。
package datasets

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/tensor"
	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/stats/truncnorm"
)

// Batch は B 個の回帰問題の観測データ
type Batch struct {
	X     *tensor.Dense3 // B x N x P
	Y     *mat.Dense     // B x N
	Lower *mat.Dense     // B x N、nil の場合は推定器のスカラー境界を使う
	Upper *mat.Dense     // B x N、nil の場合は推定器のスカラー境界を使う
	Truth *mat.Dense     // B x P の真の係数（既知の場合）
}

// Validate は各配列の形状が一致していることを確認する
func (b *Batch) Validate() error {
	if b.X == nil || b.Y == nil {
		return errors.NewModelError("Batch.Validate", "empty data", errors.ErrEmptyData)
	}
	nb, n, p := b.X.Dims()
	for _, m := range []*mat.Dense{b.Y, b.Lower, b.Upper} {
		if m == nil {
			continue
		}
		r, c := m.Dims()
		if r != nb {
			return errors.NewDimensionError("Batch.Validate", nb, r, 0)
		}
		if c != n {
			return errors.NewDimensionError("Batch.Validate", n, c, 1)
		}
	}
	if b.Truth != nil {
		r, c := b.Truth.Dims()
		if r != nb {
			return errors.NewDimensionError("Batch.Validate", nb, r, 0)
		}
		if c != p {
			return errors.NewDimensionError("Batch.Validate", p, c, 2)
		}
	}
	return nil
}

// LinearConfig は MakeLinear の設定
type LinearConfig struct {
	Batch    int     // バッチ要素数 B
	Obs      int     // 要素あたりの観測数 N
	Features int     // 共変量の数 P
	Sigma    float64 // 誤差の標準偏差
	Lower    float64 // 下側の境界
	Upper    float64 // 上側の境界
	Censored bool    // true: 境界で丸める（Tobit）、false: 区間内に切断して標本化
	Seed     uint64
}

// DefaultLinearConfig は MakeLinear の既定値を返す
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{
		Batch:    8,
		Obs:      200,
		Features: 3,
		Sigma:    0.5,
		Lower:    0,
		Upper:    math.Inf(1),
		Seed:     42,
	}
}

func (c LinearConfig) validate() error {
	if c.Batch < 1 || c.Obs < 1 || c.Features < 1 {
		return errors.NewValidationError("shape", "batch, obs and features must be positive", [3]int{c.Batch, c.Obs, c.Features})
	}
	if !(c.Sigma > 0) {
		return errors.NewValidationError("sigma", "must be positive", c.Sigma)
	}
	if !(c.Lower < c.Upper) {
		return errors.NewValidationError("bounds", "lower must be less than upper", [2]float64{c.Lower, c.Upper})
	}
	return nil
}

// MakeLinear は y = xβ + ε のデータを生成する。x ~ U(0, 1)、β ~ U(0.5, 2)。
// Censored が false の場合、y は [Lower, Upper] に切断された正規分布から直接標本化される。
func MakeLinear(cfg LinearConfig) (*Batch, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	x := tensor.NewDense3(cfg.Batch, cfg.Obs, cfg.Features, nil)
	y := mat.NewDense(cfg.Batch, cfg.Obs, nil)
	truth := mat.NewDense(cfg.Batch, cfg.Features, nil)

	for b := 0; b < cfg.Batch; b++ {
		beta := truth.RawRowView(b)
		for k := range beta {
			beta[k] = 0.5 + 1.5*rng.Float64()
		}
		for j := 0; j < cfg.Obs; j++ {
			var mu float64
			for k := 0; k < cfg.Features; k++ {
				v := rng.Float64()
				x.Set(b, j, k, v)
				mu += v * beta[k]
			}
			if cfg.Censored {
				v := mu + cfg.Sigma*rng.NormFloat64()
				y.Set(b, j, math.Min(math.Max(v, cfg.Lower), cfg.Upper))
				continue
			}
			d := truncnorm.TruncatedNormal{Loc: mu, Scale: cfg.Sigma, Lower: cfg.Lower, Upper: cfg.Upper}
			y.Set(b, j, d.Rand(rng))
		}
	}
	return &Batch{X: x, Y: y, Truth: truth}, nil
}
