package diagnostics

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/pkg/errors"
)

func TestSaveLossCurve(t *testing.T) {
	history := []float64{3, 2, 1.5, math.NaN(), 1.2, 1.1}
	path := filepath.Join(t.TempDir(), "loss.png")

	require.NoError(t, SaveLossCurve(history, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestLossCurveEmpty(t *testing.T) {
	_, err := LossCurve(nil)
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))

	_, err = LossCurve([]float64{math.Inf(1)})
	assert.True(t, errors.As(err, &valErr))
}

func TestFittedVsObserved(t *testing.T) {
	observed := mat.NewDense(2, 3, []float64{0, 1, 2, 3, 4, 5})
	fitted := mat.NewDense(2, 3, []float64{0.1, 0.9, 2.2, 2.8, 4.1, 5.3})

	p, err := FittedVsObserved(observed, fitted)
	require.NoError(t, err)
	assert.Equal(t, "Fitted vs observed", p.Title.Text)

	path := filepath.Join(t.TempDir(), "scatter.svg")
	require.NoError(t, Save(p, path))
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = FittedVsObserved(observed, mat.NewDense(2, 2, nil))
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Axis)
}
