// Package optim は勾配ベースの最適化アルゴリズムと学習率スケジューラを提供します。
package optim

import (
	"math"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// Adam はバイアス補正付きの Adam 最適化アルゴリズムです。
// 重み減衰は L2 正則化として勾配に加算されます（AdamW の分離型減衰ではありません）。
type Adam struct {
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	maxGradNorm float64

	m, v     []float64
	scratch  []float64
	t        int
	gradNorm float64
}

// AdamOption はAdamの設定オプション
type AdamOption func(*Adam)

// WithLR は学習率を設定
func WithLR(lr float64) AdamOption {
	return func(a *Adam) { a.lr = lr }
}

// WithBetas は1次・2次モーメントの減衰率を設定
func WithBetas(beta1, beta2 float64) AdamOption {
	return func(a *Adam) {
		a.beta1 = beta1
		a.beta2 = beta2
	}
}

// WithEpsilon は分母の安定化項を設定
func WithEpsilon(eps float64) AdamOption {
	return func(a *Adam) { a.eps = eps }
}

// WithWeightDecay はL2重み減衰の係数を設定
func WithWeightDecay(wd float64) AdamOption {
	return func(a *Adam) { a.weightDecay = wd }
}

// WithMaxGradNorm は勾配ノルムの上限を設定（0以下で無効）
func WithMaxGradNorm(maxNorm float64) AdamOption {
	return func(a *Adam) { a.maxGradNorm = maxNorm }
}

// NewAdam は n 個のパラメータを最適化するAdamを作成
func NewAdam(n int, opts ...AdamOption) *Adam {
	a := &Adam{
		lr:      1e-3,
		beta1:   0.9,
		beta2:   0.999,
		eps:     1e-8,
		m:       make([]float64, n),
		v:       make([]float64, n),
		scratch: make([]float64, n),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Step は params を grad に基づいて1ステップ更新します。grad は変更されません。
func (a *Adam) Step(params, grad []float64) error {
	if len(params) != len(a.m) {
		return errors.NewDimensionError("Adam.Step", len(a.m), len(params), 2)
	}
	if len(grad) != len(a.m) {
		return errors.NewDimensionError("Adam.Step", len(a.m), len(grad), 2)
	}

	g := a.scratch
	copy(g, grad)
	a.gradNorm = errors.ClipGradient(g, a.maxGradNorm)

	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i := range params {
		gi := g[i] + a.weightDecay*params[i]
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*gi
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*gi*gi

		denom := math.Sqrt(a.v[i]/bc2) + a.eps
		params[i] -= a.lr * (a.m[i] / bc1) / denom
	}
	return nil
}

// LR は現在の学習率を返す
func (a *Adam) LR() float64 { return a.lr }

// SetLR は学習率を変更する（スケジューラから呼ばれる）
func (a *Adam) SetLR(lr float64) { a.lr = lr }

// Steps は実行済みのステップ数を返す
func (a *Adam) Steps() int { return a.t }

// GradNorm は直前のステップでクリップ前の勾配ノルムを返す
func (a *Adam) GradNorm() float64 { return a.gradNorm }

// Reset はモーメントとステップ数を初期化する
func (a *Adam) Reset() {
	for i := range a.m {
		a.m[i] = 0
		a.v[i] = 0
	}
	a.t = 0
	a.gradNorm = 0
}
