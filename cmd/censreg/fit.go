package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/model"
	"github.com/YuminosukeSato/censreg/datasets"
	"github.com/YuminosukeSato/censreg/diagnostics"
	"github.com/YuminosukeSato/censreg/linear"
	"github.com/YuminosukeSato/censreg/metrics"
	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/pkg/log"
)

type fitFlags struct {
	input   string
	config  string
	output  string
	plot    string
	scatter string
}

func newFitCmd() *cobra.Command {
	var f fitFlags
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a batch file and write the estimated weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFit(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.input, "input", "", "JSON batch file")
	flags.StringVar(&f.config, "config", "", "YAML estimator configuration")
	flags.StringVar(&f.output, "output", "", "weights file (.json or .gob)")
	flags.StringVar(&f.plot, "plot", "", "loss curve image (.png, .svg or .pdf)")
	flags.StringVar(&f.scatter, "scatter", "", "fitted vs observed image")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runFit(cmd *cobra.Command, f fitFlags) error {
	logger := log.GetLoggerWithName("cli")

	cfg := DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = LoadConfig(f.config); err != nil {
			return err
		}
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	data, err := datasets.Load(f.input)
	if err != nil {
		return err
	}

	// nil の *mat.Dense をそのままインターフェースに入れない
	var lower, upper mat.Matrix
	if data.Lower != nil {
		lower = data.Lower
	}
	if data.Upper != nil {
		upper = data.Upper
	}

	cr := linear.NewCensoredRegression(opts...)
	if err := cr.FitBounded(cmd.Context(), data.X, data.Y, lower, upper); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "iterations: %d  converged: %t  best loss: %.6g\n", cr.NIter(), cr.Converged(), cr.BestLoss())
	fmt.Fprintf(out, "log-likelihood: %.6g\n", floats.Sum(cr.LogLikelihood()))
	if data.Truth != nil {
		printTruthComparison(cmd, data.Truth, cr.Coef())
	}

	// 観測値との比較は学習時と同じ境界での期待値を使う
	mean, err := cr.PredictMeanBounded(data.X, lower, upper)
	if err != nil {
		return err
	}
	rep, err := metrics.Evaluate(data.Y, mean)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "fitted mean vs observed: MSE %.6g  RMSE %.6g  MAE %.6g  R2 %.4f  explained variance %.4f\n",
		rep.MSE, rep.RMSE, rep.MAE, rep.R2, rep.ExplainedVariance)

	if f.output != "" {
		if err := writeWeights(cr, f.output); err != nil {
			return err
		}
		logger.Info("Weights written", "path", f.output)
	}
	if f.plot != "" {
		if err := diagnostics.SaveLossCurve(cr.LossHistory(), f.plot); err != nil {
			return err
		}
		logger.Info("Loss curve written", "path", f.plot)
	}
	if f.scatter != "" {
		p, err := diagnostics.FittedVsObserved(data.Y, mean)
		if err != nil {
			return err
		}
		if err := diagnostics.Save(p, f.scatter); err != nil {
			return err
		}
		logger.Info("Scatter plot written", "path", f.scatter)
	}
	return nil
}

func printTruthComparison(cmd *cobra.Command, truth, coef *mat.Dense) {
	out := cmd.OutOrStdout()
	mse, err := metrics.BatchMSE(truth, coef)
	if err != nil {
		fmt.Fprintf(out, "truth has a different shape: %v\n", err)
		return
	}
	fmt.Fprintf(out, "coefficient MSE (mean over batch): %.6g\n", floats.Sum(mse)/float64(len(mse)))
	if angle, err := metrics.MeanAngularError(truth, coef); err == nil {
		fmt.Fprintf(out, "mean angular error: %.4g deg\n", angle)
	}
}

// writeWeights は拡張子に応じて JSON か gob で重みを保存する
func writeWeights(exporter model.WeightExporter, path string) error {
	w, err := exporter.ExportWeights()
	if err != nil {
		return err
	}
	if filepath.Ext(path) == ".gob" {
		return model.SaveWeights(w, path)
	}
	raw, err := w.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write weights %s", path)
	}
	return nil
}
