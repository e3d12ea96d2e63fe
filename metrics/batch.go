package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

func checkSameShape(op string, a, b mat.Matrix) (int, int, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra == 0 || ca == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	if ra != rb {
		return 0, 0, errors.NewDimensionError(op, ra, rb, 0)
	}
	if ca != cb {
		return 0, 0, errors.NewDimensionError(op, ca, cb, 1)
	}
	return ra, ca, nil
}

// BatchMSE returns the mean squared error of every row of two B x N matrices.
func BatchMSE(yTrue, yPred mat.Matrix) ([]float64, error) {
	r, c, err := checkSameShape("BatchMSE", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	out := make([]float64, r)
	for i := range out {
		var sum float64
		for j := 0; j < c; j++ {
			d := yTrue.At(i, j) - yPred.At(i, j)
			sum += d * d
		}
		out[i] = sum / float64(c)
	}
	return out, nil
}

// AngularError returns, for every row, the angle in degrees between the
// reference and estimated vectors. Rows with a zero-length vector give NaN.
func AngularError(truth, estimate mat.Matrix) ([]float64, error) {
	r, c, err := checkSameShape("AngularError", truth, estimate)
	if err != nil {
		return nil, err
	}
	out := make([]float64, r)
	a := make([]float64, c)
	b := make([]float64, c)
	for i := range out {
		mat.Row(a, i, truth)
		mat.Row(b, i, estimate)
		na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
		if na == 0 || nb == 0 {
			out[i] = math.NaN()
			continue
		}
		cos := floats.Dot(a, b) / (na * nb)
		// 丸め誤差で |cos| が 1 をわずかに超えることがある
		cos = math.Max(-1, math.Min(1, cos))
		out[i] = math.Acos(cos) * 180 / math.Pi
	}
	return out, nil
}

// MeanAngularError averages AngularError over the rows with a defined angle.
func MeanAngularError(truth, estimate mat.Matrix) (float64, error) {
	angles, err := AngularError(truth, estimate)
	if err != nil {
		return 0, err
	}
	var sum float64
	n := 0
	for _, a := range angles {
		if !math.IsNaN(a) {
			sum += a
			n++
		}
	}
	if n == 0 {
		return 0, errors.NewValueError("MeanAngularError", "no row has a defined angle")
	}
	return sum / float64(n), nil
}
