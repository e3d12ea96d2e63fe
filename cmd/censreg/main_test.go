package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/censreg/core/model"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerateAndFit(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "batch.json")
	config := filepath.Join(dir, "fit.yaml")
	weights := filepath.Join(dir, "weights.json")
	gobWeights := filepath.Join(dir, "weights.gob")
	lossPlot := filepath.Join(dir, "loss.png")

	out, _, err := execute(t, "generate", "--output", input, "--batch", "3", "--obs", "300", "--features", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "3 x 300 x 2 truncated")

	require.NoError(t, os.WriteFile(config, []byte("solver: lbfgs\nmax_iter: 200\n"), 0o600))
	out, logs, err := execute(t, "--log-format", "json", "fit",
		"--input", input, "--config", config, "--output", weights, "--plot", lossPlot)
	require.NoError(t, err)
	assert.Contains(t, out, "coefficient MSE")
	assert.Contains(t, out, "fitted mean vs observed")
	assert.Contains(t, out, "R2")
	assert.Contains(t, logs, "Fit completed")

	raw, err := os.ReadFile(weights)
	require.NoError(t, err)
	var w model.BatchWeights
	require.NoError(t, w.FromJSON(raw))
	assert.Equal(t, "CensoredRegression", w.ModelType)
	assert.Len(t, w.Coefficients, 3)

	info, err := os.Stat(lossPlot)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, _, err = execute(t, "fit", "--input", input, "--output", gobWeights)
	require.NoError(t, err)
	loaded, err := model.LoadWeights(gobWeights)
	require.NoError(t, err)
	assert.True(t, loaded.IsFitted)
}

func TestFitRequiresInput(t *testing.T) {
	_, _, err := execute(t, "fit")
	assert.Error(t, err)
}

func TestInvalidLogFormat(t *testing.T) {
	_, _, err := execute(t, "--log-format", "xml", "demo")
	assert.Error(t, err)
}

func TestCloudLogFormat(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "batch.json")
	_, _, err := execute(t, "generate", "--output", input, "--batch", "2", "--obs", "200", "--features", "2")
	require.NoError(t, err)

	_, logs, err := execute(t, "--log-format", "cloud", "fit", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, logs, `"severity":"INFO"`)
	assert.Contains(t, logs, `"message":"Fit completed"`)
}

func TestDemo(t *testing.T) {
	out, _, err := execute(t, "--log-level", "warn", "demo", "--batch", "3", "--solver", "lbfgs")
	require.NoError(t, err)
	assert.Contains(t, out, "mean angular error")
	assert.Contains(t, out, "pixel   2")
}
