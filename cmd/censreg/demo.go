package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/censreg/datasets"
	"github.com/YuminosukeSato/censreg/linear"
	"github.com/YuminosukeSato/censreg/metrics"
)

// newDemoCmd は写真測光ステレオの法線推定を実行する。
// 画素の明るさは 0 で打ち切られるので Tobit 尤度で当てはめる。
func newDemoCmd() *cobra.Command {
	var (
		cfg    = datasets.DefaultPhotometricConfig()
		solver string
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Recover photometric-stereo surface normals from shadowed pixels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := datasets.MakePhotometric(cfg)
			if err != nil {
				return err
			}
			cr := linear.NewCensoredRegression(
				linear.WithLikelihood(linear.Censored),
				linear.WithBounds(0, math.Inf(1)),
				linear.WithSolver(solver),
			)
			if err := cr.Fit(cmd.Context(), data.X, data.Y); err != nil {
				return err
			}
			angles, err := metrics.AngularError(data.Truth, cr.Coef())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			coef := cr.Coef()
			for b, angle := range angles {
				n := coef.RawRowView(b)
				t := data.Truth.RawRowView(b)
				fmt.Fprintf(out, "pixel %3d  true (% .3f % .3f % .3f)  estimate (% .3f % .3f % .3f)  error %.2f deg\n",
					b, t[0], t[1], t[2], n[0], n[1], n[2], angle)
			}
			mean, err := metrics.MeanAngularError(data.Truth, coef)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "mean angular error: %.3f deg over %d pixels (%d iterations)\n", mean, len(angles), cr.NIter())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&cfg.Pixels, "batch", cfg.Pixels, "number of pixels")
	flags.IntVar(&cfg.Lights, "lights", cfg.Lights, "number of light directions")
	flags.Float64Var(&cfg.Noise, "noise", cfg.Noise, "measurement noise standard deviation")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	flags.StringVar(&solver, "solver", linear.SolverAdam, "adam or lbfgs")
	return cmd
}
