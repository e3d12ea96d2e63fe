package datasets

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

func TestMakeLinearTruncated(t *testing.T) {
	cfg := DefaultLinearConfig()
	cfg.Lower, cfg.Upper = 1, 3
	data, err := MakeLinear(cfg)
	require.NoError(t, err)

	b, n, p := data.X.Dims()
	assert.Equal(t, []int{cfg.Batch, cfg.Obs, cfg.Features}, []int{b, n, p})
	for _, v := range data.Y.RawMatrix().Data {
		require.GreaterOrEqual(t, v, 1.0)
		require.LessOrEqual(t, v, 3.0)
	}
	for _, v := range data.Truth.RawMatrix().Data {
		assert.GreaterOrEqual(t, v, 0.5)
		assert.Less(t, v, 2.0)
	}
}

func TestMakeLinearCensored(t *testing.T) {
	cfg := DefaultLinearConfig()
	cfg.Censored = true
	cfg.Lower = 1.5
	data, err := MakeLinear(cfg)
	require.NoError(t, err)

	var atBound int
	for _, v := range data.Y.RawMatrix().Data {
		require.GreaterOrEqual(t, v, 1.5)
		if v == 1.5 {
			atBound++
		}
	}
	assert.Greater(t, atBound, 0)
}

func TestMakeLinearDeterministic(t *testing.T) {
	a, err := MakeLinear(DefaultLinearConfig())
	require.NoError(t, err)
	b, err := MakeLinear(DefaultLinearConfig())
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.Y, b.Y))

	cfg := DefaultLinearConfig()
	cfg.Seed = 7
	c, err := MakeLinear(cfg)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a.Y, c.Y))
}

func TestMakeLinearValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LinearConfig)
	}{
		{"zero batch", func(c *LinearConfig) { c.Batch = 0 }},
		{"zero sigma", func(c *LinearConfig) { c.Sigma = 0 }},
		{"inverted bounds", func(c *LinearConfig) { c.Lower, c.Upper = 2, 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLinearConfig()
			tt.mutate(&cfg)
			_, err := MakeLinear(cfg)
			var valErr *errors.ValidationError
			assert.True(t, errors.As(err, &valErr))
		})
	}
}

func TestMakePhotometric(t *testing.T) {
	cfg := DefaultPhotometricConfig()
	cfg.Pixels = 5
	data, err := MakePhotometric(cfg)
	require.NoError(t, err)

	b, n, p := data.X.Dims()
	assert.Equal(t, []int{5, 100, 3}, []int{b, n, p})
	for i := 0; i < b; i++ {
		assert.InDelta(t, 1.0, floats.Norm(data.Truth.RawRowView(i), 2), 1e-12)
		for j := 0; j < n; j++ {
			assert.GreaterOrEqual(t, data.Y.At(i, j), 0.0)
			assert.GreaterOrEqual(t, data.X.At(i, j, 2), 0.0)
			assert.Less(t, math.Abs(data.X.At(i, j, 0)), 0.5+1e-12)
		}
	}

	_, err = MakePhotometric(PhotometricConfig{Pixels: 1, Lights: 2})
	assert.Error(t, err)
	_, err = MakePhotometric(PhotometricConfig{Pixels: 1, Lights: 5, Noise: -1})
	assert.Error(t, err)
}

func TestReadWriteRoundTrip(t *testing.T) {
	data, err := MakeLinear(LinearConfig{Batch: 2, Obs: 4, Features: 2, Sigma: 1, Lower: 0, Upper: math.Inf(1), Seed: 1})
	require.NoError(t, err)
	data.Lower = mat.NewDense(2, 4, nil)
	data.Upper = mat.NewDense(2, 4, []float64{
		math.Inf(1), 5, 5, 5,
		5, 5, 5, math.Inf(1),
	})

	var buf bytes.Buffer
	require.NoError(t, Write(data, &buf))
	assert.Contains(t, buf.String(), "null")

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, data.X.RawData(), got.X.RawData())
	assert.True(t, mat.Equal(data.Y, got.Y))
	assert.True(t, mat.Equal(data.Truth, got.Truth))
	assert.True(t, math.IsInf(got.Upper.At(0, 0), 1))
	assert.Equal(t, 5.0, got.Upper.At(0, 1))

	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, Save(data, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(data.Lower, loaded.Lower))
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed", `{"x": [`},
		{"empty x", `{"x": [], "y": [[1]]}`},
		{"missing y", `{"x": [[[1]]]}`},
		{"y batch mismatch", `{"x": [[[1]], [[2]]], "y": [[1]]}`},
		{"ragged y", `{"x": [[[1],[2]], [[3],[4]]], "y": [[1, 2], [3]]}`},
		{"bounds shape", `{"x": [[[1]]], "y": [[1]], "lower": [[0, 0]]}`},
		{"truth shape", `{"x": [[[1]]], "y": [[1]], "truth": [[1, 2]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
