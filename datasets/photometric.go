package datasets

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/tensor"
	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// PhotometricConfig は MakePhotometric の設定
type PhotometricConfig struct {
	Pixels int     // バッチ要素数（画素数）
	Lights int     // 光源数
	Noise  float64 // 輝度に加える正規ノイズの標準偏差
	Seed   uint64
}

// DefaultPhotometricConfig は MakePhotometric の既定値を返す
func DefaultPhotometricConfig() PhotometricConfig {
	return PhotometricConfig{Pixels: 2, Lights: 100, Noise: 0.01, Seed: 42}
}

// MakePhotometric はランバート反射モデルによる照度差ステレオのデータを生成する。
// 各画素の法線 n は単位ベクトル、光源方向 L は x, y 成分が [-0.5, 0.5)、z 成分が [0, 1)。
// 輝度 m = L·n + N(0, Noise²) で、影になる負の値は 0 に打ち切られる。
// Truth には真の法線が入る。
func MakePhotometric(cfg PhotometricConfig) (*Batch, error) {
	if cfg.Pixels < 1 || cfg.Lights < 3 {
		return nil, errors.NewValidationError("shape", "need at least one pixel and three lights", [2]int{cfg.Pixels, cfg.Lights})
	}
	if cfg.Noise < 0 || math.IsNaN(cfg.Noise) {
		return nil, errors.NewValidationError("noise", "must be non-negative", cfg.Noise)
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	x := tensor.NewDense3(cfg.Pixels, cfg.Lights, 3, nil)
	y := mat.NewDense(cfg.Pixels, cfg.Lights, nil)
	normals := mat.NewDense(cfg.Pixels, 3, nil)

	for b := 0; b < cfg.Pixels; b++ {
		n := normals.RawRowView(b)
		for {
			for k := range n {
				n[k] = rng.Float64() - 0.5
			}
			if norm := floats.Norm(n, 2); norm > 1e-6 {
				floats.Scale(1/norm, n)
				break
			}
		}

		lights := x.Slice(b)
		for j := 0; j < cfg.Lights; j++ {
			l := lights.RawRowView(j)
			l[0] = rng.Float64() - 0.5
			l[1] = rng.Float64() - 0.5
			l[2] = rng.Float64()
			m := floats.Dot(l, n) + cfg.Noise*rng.NormFloat64()
			y.Set(b, j, math.Max(m, 0))
		}
	}
	return &Batch{X: x, Y: y, Truth: normals}, nil
}
