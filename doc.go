// Package censreg fits many independent linear regressions at once when the
// responses are truncated to, or censored at, known bounds.
//
// Each batch element b has N observations
//
//	y_bi = x_bi · β_b + ε_bi,  ε_bi ~ N(0, σ_b²)
//
// and only values inside [lower, upper] are seen. With the truncated
// likelihood, observations outside the window never enter the sample. With
// the censored (Tobit) likelihood they are recorded at the nearest bound.
//
// # Packages
//
//   - core/tensor: B x N x P covariate tensors and batched mat-vec products
//   - stats/truncnorm: stable log-CDF, log mass of an interval, truncated normal
//   - optim: Adam with learning-rate schedules
//   - linear: the CensoredRegression estimator (Adam or L-BFGS)
//   - datasets: synthetic batches and the JSON batch file format
//   - metrics, diagnostics: evaluation metrics and gonum/plot figures
//   - cmd/censreg: command line interface
//
// # Quick Start
//
//	data, err := datasets.MakeLinear(datasets.DefaultLinearConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cr := linear.NewCensoredRegression(
//	    linear.WithLikelihood(linear.Truncated),
//	    linear.WithBounds(0, math.Inf(1)),
//	)
//	if err := cr.Fit(ctx, data.X, data.Y); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cr.Coef(), cr.Sigma())
//
// Per-observation bounds are passed to FitBounded as B x N matrices.
//
// # Error Handling
//
// Errors carry stack traces from github.com/cockroachdb/errors and are typed
// (NotFittedError, DimensionError, ValidationError, ...). Non-fatal
// conditions such as a solver that did not converge are reported through
// errors.Warn and can be routed to zerolog with log.ZerologProvider.
package censreg
