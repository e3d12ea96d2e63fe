package metrics

import (
	"gonum.org/v1/gonum/mat"
)

// Report は全観測を一つのベクトルとみなした回帰指標の要約
type Report struct {
	MSE               float64
	RMSE              float64
	MAE               float64
	R2                float64
	ExplainedVariance float64
}

// Evaluate flattens two B x N matrices row by row and computes every
// regression metric of the package on the pooled observations.
func Evaluate(yTrue, yPred mat.Matrix) (Report, error) {
	r, c, err := checkSameShape("Evaluate", yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	t := mat.NewVecDense(r*c, nil)
	p := mat.NewVecDense(r*c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t.SetVec(i*c+j, yTrue.At(i, j))
			p.SetVec(i*c+j, yPred.At(i, j))
		}
	}

	var rep Report
	if rep.MSE, err = MSE(t, p); err != nil {
		return Report{}, err
	}
	if rep.RMSE, err = RMSE(t, p); err != nil {
		return Report{}, err
	}
	if rep.MAE, err = MAE(t, p); err != nil {
		return Report{}, err
	}
	if rep.R2, err = R2Score(t, p); err != nil {
		return Report{}, err
	}
	if rep.ExplainedVariance, err = ExplainedVarianceScore(t, p); err != nil {
		return Report{}, err
	}
	return rep, nil
}
