// Package tensor provides the rank-3 batch container used by the batched
// estimators: B independent design matrices of shape N x P stored
// contiguously in row-major order.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/parallel"
	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// parallelThreshold はこの値以下のバッチ数では逐次処理を使用する
const parallelThreshold = 16

// Dense3 is a dense B x N x P tensor of float64 values.
type Dense3 struct {
	b, n, p int
	data    []float64
}

// NewDense3 creates a B x N x P tensor backed by data. A nil data slice
// allocates zeros. Like mat.NewDense, it panics on non-positive dimensions or
// when len(data) != b*n*p.
func NewDense3(b, n, p int, data []float64) *Dense3 {
	if b <= 0 || n <= 0 || p <= 0 {
		panic(fmt.Sprintf("tensor: non-positive dimension (%d, %d, %d)", b, n, p))
	}
	if data == nil {
		data = make([]float64, b*n*p)
	}
	if len(data) != b*n*p {
		panic(fmt.Sprintf("tensor: data length %d does not match shape (%d, %d, %d)", len(data), b, n, p))
	}
	return &Dense3{b: b, n: n, p: p, data: data}
}

// NewDense3FromSlices copies a nested [batch][observation][feature] slice.
func NewDense3FromSlices(x [][][]float64) (*Dense3, error) {
	if len(x) == 0 || len(x[0]) == 0 || len(x[0][0]) == 0 {
		return nil, errors.NewModelError("tensor.NewDense3FromSlices", "empty data", errors.ErrEmptyData)
	}
	b, n, p := len(x), len(x[0]), len(x[0][0])
	data := make([]float64, 0, b*n*p)
	for _, xi := range x {
		if len(xi) != n {
			return nil, errors.NewDimensionError("tensor.NewDense3FromSlices", n, len(xi), 1)
		}
		for _, row := range xi {
			if len(row) != p {
				return nil, errors.NewDimensionError("tensor.NewDense3FromSlices", p, len(row), 2)
			}
			data = append(data, row...)
		}
	}
	return NewDense3(b, n, p, data), nil
}

// Dims returns the batch size, observations per element and features.
func (t *Dense3) Dims() (b, n, p int) {
	return t.b, t.n, t.p
}

func (t *Dense3) offset(i, j, k int) int {
	if uint(i) >= uint(t.b) || uint(j) >= uint(t.n) || uint(k) >= uint(t.p) {
		panic(fmt.Sprintf("tensor: index (%d, %d, %d) out of range (%d, %d, %d)", i, j, k, t.b, t.n, t.p))
	}
	return (i*t.n+j)*t.p + k
}

// At returns element (i, j, k).
func (t *Dense3) At(i, j, k int) float64 {
	return t.data[t.offset(i, j, k)]
}

// Set sets element (i, j, k) to v.
func (t *Dense3) Set(i, j, k int, v float64) {
	t.data[t.offset(i, j, k)] = v
}

// RawData returns the backing slice. Modifying it modifies the tensor.
func (t *Dense3) RawData() []float64 {
	return t.data
}

// Slice returns batch element i as an N x P matrix sharing storage with t.
func (t *Dense3) Slice(i int) *mat.Dense {
	if uint(i) >= uint(t.b) {
		panic(fmt.Sprintf("tensor: batch index %d out of range [0, %d)", i, t.b))
	}
	size := t.n * t.p
	return mat.NewDense(t.n, t.p, t.data[i*size:(i+1)*size:(i+1)*size])
}

// Clone returns a deep copy of t.
func (t *Dense3) Clone() *Dense3 {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Dense3{b: t.b, n: t.n, p: t.p, data: data}
}

// WithIntercept returns a new tensor with a leading column of ones,
// giving shape B x N x (P+1).
func (t *Dense3) WithIntercept() *Dense3 {
	out := NewDense3(t.b, t.n, t.p+1, nil)
	rows := t.b * t.n
	parallel.ParallelizeWithThreshold(rows, 1000, parallel.Workers(0), func(start, end int) {
		for r := start; r < end; r++ {
			dst := out.data[r*(t.p+1) : (r+1)*(t.p+1)]
			dst[0] = 1.0 // 切片項
			copy(dst[1:], t.data[r*t.p:(r+1)*t.p])
		}
	})
	return out
}

// BatchMulVec computes out[b, j] = sum_k X[b, j, k] * beta[b, k] for a
// B x P coefficient matrix, returning a B x N matrix.
func (t *Dense3) BatchMulVec(beta mat.Matrix) (*mat.Dense, error) {
	rb, cb := beta.Dims()
	if rb != t.b {
		return nil, errors.NewDimensionError("tensor.BatchMulVec", t.b, rb, 0)
	}
	if cb != t.p {
		return nil, errors.NewDimensionError("tensor.BatchMulVec", t.p, cb, 2)
	}

	out := mat.NewDense(t.b, t.n, nil)
	parallel.ParallelizeWithThreshold(t.b, parallelThreshold, parallel.Workers(0), func(start, end int) {
		for i := start; i < end; i++ {
			coef := mat.NewVecDense(t.p, mat.Row(nil, i, beta))
			dst := mat.NewVecDense(t.n, out.RawRowView(i))
			dst.MulVec(t.Slice(i), coef)
		}
	})
	return out, nil
}
