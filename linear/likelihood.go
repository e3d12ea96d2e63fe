package linear

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/tensor"
	"github.com/YuminosukeSato/censreg/stats/truncnorm"
)

// obsStatus は観測値が尤度にどう寄与するかを表す
type obsStatus int8

const (
	obsInterior obsStatus = iota // 区間内: 密度で寄与
	obsLeft                      // y <= lower: 左打ち切り
	obsRight                     // y >= upper: 右打ち切り
	obsExcluded                  // 切断回帰で区間外の観測（寄与しない）
)

// problem は1回の Fit で共有される前処理済みの観測データ。
// パラメータはバッチ要素ごとに θ = (β, s), σ = exp(s) の順で並ぶ。
type problem struct {
	mode   Likelihood
	x      *tensor.Dense3 // 切片ありの場合は先頭列が 1
	y      *mat.Dense
	lower  *mat.Dense
	upper  *mat.Dense
	status [][]obsStatus

	nBatch, nObs, nCoef int

	excluded, left, right int
}

func newProblem(mode Likelihood, x *tensor.Dense3, y, lower, upper *mat.Dense) *problem {
	b, n, p := x.Dims()
	pr := &problem{
		mode: mode, x: x, y: y, lower: lower, upper: upper,
		status: make([][]obsStatus, b),
		nBatch: b, nObs: n, nCoef: p,
	}
	for i := 0; i < b; i++ {
		st := make([]obsStatus, n)
		for j := 0; j < n; j++ {
			st[j] = classify(mode, y.At(i, j), lower.At(i, j), upper.At(i, j))
			switch st[j] {
			case obsExcluded:
				pr.excluded++
			case obsLeft:
				pr.left++
			case obsRight:
				pr.right++
			}
		}
		pr.status[i] = st
	}
	return pr
}

func classify(mode Likelihood, y, l, u float64) obsStatus {
	if mode == Truncated {
		if y < l || y > u {
			return obsExcluded
		}
		return obsInterior
	}
	switch {
	case !math.IsInf(l, 0) && y <= l:
		return obsLeft
	case !math.IsInf(u, 0) && y >= u:
		return obsRight
	default:
		return obsInterior
	}
}

// nParams はバッチ要素あたりのパラメータ数（係数 + log σ）
func (pr *problem) nParams() int {
	return pr.nCoef + 1
}

// retained はバッチ要素 b で尤度に寄与する観測数を返す
func (pr *problem) retained(b int) int {
	n := 0
	for _, st := range pr.status[b] {
		if st != obsExcluded {
			n++
		}
	}
	return n
}

// logLik はバッチ要素 b の対数尤度の和を返す。
// grad が nil でなければ dℓ/dθ を上書きで格納する。
func (pr *problem) logLik(b int, theta, grad []float64) float64 {
	p := pr.nCoef
	beta := theta[:p]
	s := theta[p]
	sigma := math.Exp(s)

	if grad != nil {
		for k := range grad {
			grad[k] = 0
		}
	}

	xb := pr.x.Slice(b)
	yb := pr.y.RawRowView(b)
	lb := pr.lower.RawRowView(b)
	ub := pr.upper.RawRowView(b)

	var ll float64
	for j, st := range pr.status[b] {
		if st == obsExcluded {
			continue
		}
		row := xb.RawRowView(j)
		mu := floats.Dot(row, beta)
		a := (lb[j] - mu) / sigma
		c := (ub[j] - mu) / sigma

		var v, dmu, ds float64
		switch st {
		case obsLeft:
			v = truncnorm.LogNormalCDF(a)
			lam := truncnorm.InverseMills(a)
			dmu = -lam / sigma
			ds = -a * lam
		case obsRight:
			v = truncnorm.LogNormalCDF(-c)
			lam := truncnorm.InverseMills(-c)
			dmu = lam / sigma
			ds = c * lam
		default:
			z := (yb[j] - mu) / sigma
			v = truncnorm.LogNormalPDF(z) - s
			dmu = z / sigma
			ds = z*z - 1
			if pr.mode == Truncated {
				logZ := truncnorm.LogDelta(a, c)
				ra := truncnorm.DensityRatio(a, logZ)
				rc := truncnorm.DensityRatio(c, logZ)
				v -= logZ
				dmu -= (ra - rc) / sigma
				ds -= mulFinite(a, ra) - mulFinite(c, rc)
			}
		}
		ll += v
		if grad != nil {
			floats.AddScaled(grad[:p], dmu, row)
			grad[p] += ds
		}
	}
	return ll
}

// mulFinite は z*r を返す。z が無限大のとき r は 0 なので積も 0 とする
func mulFinite(z, r float64) float64 {
	if math.IsInf(z, 0) {
		return 0
	}
	return z * r
}
