package datasets

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/tensor"
	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// batchFile は JSON バッチファイルの形式。
// 境界の null は無限大（lower なら -Inf、upper なら +Inf）を表す。
type batchFile struct {
	X     [][][]float64 `json:"x"`
	Y     [][]float64   `json:"y"`
	Lower [][]*float64  `json:"lower,omitempty"`
	Upper [][]*float64  `json:"upper,omitempty"`
	Truth [][]float64   `json:"truth,omitempty"`
}

// Load はファイルからバッチを読み込む
func Load(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Read はJSONを読み込み、形状を検証したバッチを返す
func Read(r io.Reader) (*Batch, error) {
	var bf batchFile
	if err := json.NewDecoder(r).Decode(&bf); err != nil {
		return nil, errors.Wrap(err, "failed to decode batch file")
	}
	x, err := tensor.NewDense3FromSlices(bf.X)
	if err != nil {
		return nil, err
	}
	b := &Batch{X: x}
	if b.Y, err = denseFromRows(bf.Y); err != nil {
		return nil, err
	}
	if bf.Lower != nil {
		if b.Lower, err = boundsFromRows(bf.Lower, -1); err != nil {
			return nil, err
		}
	}
	if bf.Upper != nil {
		if b.Upper, err = boundsFromRows(bf.Upper, 1); err != nil {
			return nil, err
		}
	}
	if bf.Truth != nil {
		if b.Truth, err = denseFromRows(bf.Truth); err != nil {
			return nil, err
		}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Save はバッチをファイルに書き出す
func Save(b *Batch, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()
	return Write(b, f)
}

// Write はバッチをJSONとして書き出す
func Write(b *Batch, w io.Writer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	nb, n, _ := b.X.Dims()
	bf := batchFile{
		X: make([][][]float64, nb),
		Y: rows(b.Y),
	}
	for i := 0; i < nb; i++ {
		s := b.X.Slice(i)
		bf.X[i] = make([][]float64, n)
		for j := 0; j < n; j++ {
			bf.X[i][j] = append([]float64(nil), s.RawRowView(j)...)
		}
	}
	if b.Lower != nil {
		bf.Lower = boundRows(b.Lower)
	}
	if b.Upper != nil {
		bf.Upper = boundRows(b.Upper)
	}
	if b.Truth != nil {
		bf.Truth = rows(b.Truth)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&bf); err != nil {
		return errors.Wrap(err, "failed to encode batch file")
	}
	return nil
}

func denseFromRows(r [][]float64) (*mat.Dense, error) {
	if len(r) == 0 || len(r[0]) == 0 {
		return nil, errors.NewModelError("datasets.Read", "empty data", errors.ErrEmptyData)
	}
	out := mat.NewDense(len(r), len(r[0]), nil)
	for i, row := range r {
		if len(row) != len(r[0]) {
			return nil, errors.NewDimensionError("datasets.Read", len(r[0]), len(row), 1)
		}
		out.SetRow(i, row)
	}
	return out, nil
}

func boundsFromRows(r [][]*float64, sign int) (*mat.Dense, error) {
	if len(r) == 0 || len(r[0]) == 0 {
		return nil, errors.NewModelError("datasets.Read", "empty data", errors.ErrEmptyData)
	}
	out := mat.NewDense(len(r), len(r[0]), nil)
	for i, row := range r {
		if len(row) != len(r[0]) {
			return nil, errors.NewDimensionError("datasets.Read", len(r[0]), len(row), 1)
		}
		for j, v := range row {
			if v == nil {
				out.Set(i, j, math.Inf(sign))
			} else {
				out.Set(i, j, *v)
			}
		}
	}
	return out, nil
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return out
}

func boundRows(m *mat.Dense) [][]*float64 {
	r, c := m.Dims()
	out := make([][]*float64, r)
	for i := range out {
		out[i] = make([]*float64, c)
		for j := range out[i] {
			if v := m.At(i, j); !math.IsInf(v, 0) {
				out[i][j] = &v
			}
		}
	}
	return out
}
