package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/parallel"
	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// LeastSquaresResult は最小二乗法の解
type LeastSquaresResult struct {
	Coef      []float64 // 係数（切片を除く）
	Intercept float64   // 切片（fitIntercept=false の場合は 0）
	Variance  float64   // 残差分散 RSS/n
}

// LeastSquares は min ||Xβ - y||² を QR 分解で解く。
// 階数落ちの場合は微小なリッジ項を加えた正規方程式にフォールバックする。
func LeastSquares(X mat.Matrix, y []float64, fitIntercept bool) (*LeastSquaresResult, error) {
	r, c := X.Dims()
	if c == 0 {
		return nil, errors.NewModelError("LeastSquares", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError("LeastSquares", r, len(y), 1)
	}

	design := designMatrix(X, fitIntercept)
	_, cols := design.Dims()
	yVec := mat.NewVecDense(r, append([]float64(nil), y...))

	w, err := solve(design, yVec)
	if err != nil {
		return nil, err
	}

	var resid mat.VecDense
	resid.MulVec(design, w)
	resid.SubVec(yVec, &resid)
	rss := mat.Dot(&resid, &resid)

	out := &LeastSquaresResult{Variance: rss / float64(r)}
	weights := append([]float64(nil), w.RawVector().Data...)
	if fitIntercept {
		out.Intercept = weights[0]
		out.Coef = weights[1:cols]
	} else {
		out.Coef = weights
	}
	return out, nil
}

// designMatrix は必要に応じて先頭に 1 の列を追加した計画行列を返す
func designMatrix(X mat.Matrix, fitIntercept bool) *mat.Dense {
	if !fitIntercept {
		return mat.DenseCopyOf(X)
	}
	r, c := X.Dims()
	withIntercept := mat.NewDense(r, c+1, nil)

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000

	parallel.ParallelizeWithThreshold(r, parallelThreshold, parallel.Workers(0), func(start, end int) {
		for i := start; i < end; i++ {
			withIntercept.Set(i, 0, 1.0) // 切片項
			for j := 0; j < c; j++ {
				withIntercept.Set(i, j+1, X.At(i, j))
			}
		}
	})
	return withIntercept
}

// maxCondition を超える条件数の計画行列は階数落ちとみなす
const maxCondition = 1e12

// solve は QR 分解による最小二乗解を返す。
// 観測数が列数より少ない場合や階数落ちの場合は ridgeSolve を使う。
func solve(X *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	r, c := X.Dims()
	if r < c {
		return ridgeSolve(X, y)
	}
	var qr mat.QR
	qr.Factorize(X)
	if qr.Cond() > maxCondition {
		return ridgeSolve(X, y)
	}
	var w mat.VecDense
	if err := qr.SolveVecTo(&w, false, y); err != nil || errors.CheckNumericalStability("least squares", w.RawVector().Data, 0) != nil {
		return ridgeSolve(X, y)
	}
	return &w, nil
}

// ridgeSolve は (XᵀX + λI)β = Xᵀy をコレスキー分解で解く
func ridgeSolve(X *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	_, c := X.Dims()

	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())
	lambda := 1e-10 * (mat.Trace(&xtx)/float64(c) + 1)
	for i := 0; i < c; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+lambda)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errors.NewModelError("LeastSquares", "singular matrix", errors.ErrSingularMatrix)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return nil, errors.NewModelError("LeastSquares", "singular matrix", errors.ErrSingularMatrix)
	}
	return &w, nil
}
