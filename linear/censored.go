package linear

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/model"
	"github.com/YuminosukeSato/censreg/core/parallel"
	"github.com/YuminosukeSato/censreg/core/tensor"
	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/pkg/log"
)

const (
	modelName    = "CensoredRegression"
	modelVersion = "1.0.0"

	// minSigma は初期値の標準偏差の下限
	minSigma = 1e-3
)

var _ model.BatchRegressor = (*CensoredRegression)(nil)

// CensoredRegression fits B independent linear models
//
//	y_bi = x_bi · β_b + ε_bi,  ε_bi ~ N(0, σ_b²)
//
// by maximum likelihood when the responses are truncated to, or censored
// at, per-observation bounds [lower, upper].
type CensoredRegression struct {
	state  *model.StateManager
	logger log.Logger

	// ハイパーパラメータ
	likelihood   Likelihood
	lower        float64
	upper        float64
	fitIntercept bool
	solver       string
	schedule     string
	learningRate float64
	etaMin       float64
	weightDecay  float64
	maxIter      int
	tol          float64
	nJobs        int
	maxGradNorm  float64

	// 学習済みパラメータ
	coef_        *mat.Dense // B x P
	intercept_   []float64  // B（切片なしの場合は nil）
	sigma_       []float64  // B
	logLik_      []float64  // B
	nIter_       int
	converged_   bool
	lossHistory_ []float64
	bestLoss_    float64
}

// NewCensoredRegression creates an estimator with the given options.
// Defaults: truncated likelihood on [0, +Inf), adam with a cosine schedule
// from 0.1 to 1e-3, weight decay 1e-4, 1000 iterations, tol 1e-5,
// no intercept, all CPUs.
func NewCensoredRegression(opts ...Option) *CensoredRegression {
	cr := &CensoredRegression{
		state:        model.NewStateManager(),
		logger:       log.GetLoggerWithName("linear"),
		likelihood:   Truncated,
		lower:        0,
		upper:        math.Inf(1),
		solver:       SolverAdam,
		schedule:     ScheduleCosine,
		learningRate: 0.1,
		etaMin:       1e-3,
		weightDecay:  1e-4,
		maxIter:      1000,
		tol:          1e-5,
		bestLoss_:    math.NaN(),
	}
	for _, opt := range opts {
		opt(cr)
	}
	cr.logger = cr.logger.With(log.ModelNameKey, modelName)
	return cr
}

// validateParams はハイパーパラメータを検証する
func (cr *CensoredRegression) validateParams() error {
	switch cr.likelihood {
	case Truncated, Censored:
	default:
		return errors.NewValidationError("likelihood", "must be 'truncated' or 'censored'", cr.likelihood)
	}
	switch cr.solver {
	case SolverAdam, SolverLBFGS:
	default:
		return errors.NewModelError(modelName, fmt.Sprintf("solver %q (want 'adam' or 'lbfgs')", cr.solver), errors.ErrUnknownSolver)
	}
	switch cr.schedule {
	case ScheduleCosine, ScheduleConstant, ScheduleInverseTime:
	default:
		return errors.NewValidationError("schedule", "must be 'cosine', 'constant' or 'inverse_time'", cr.schedule)
	}
	if math.IsNaN(cr.lower) || math.IsNaN(cr.upper) || cr.lower >= cr.upper {
		return errors.NewValidationError("bounds", "lower must be less than upper", [2]float64{cr.lower, cr.upper})
	}
	if !(cr.learningRate > 0) {
		return errors.NewValidationError("learning_rate", "must be positive", cr.learningRate)
	}
	if cr.etaMin < 0 || cr.etaMin > cr.learningRate {
		return errors.NewValidationError("eta_min", "must be in [0, learning_rate]", cr.etaMin)
	}
	if cr.weightDecay < 0 || math.IsNaN(cr.weightDecay) {
		return errors.NewValidationError("weight_decay", "must be non-negative", cr.weightDecay)
	}
	if cr.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", cr.maxIter)
	}
	if cr.tol < 0 || math.IsNaN(cr.tol) {
		return errors.NewValidationError("tol", "must be non-negative", cr.tol)
	}
	return nil
}

// Fit estimates the parameters using the scalar bounds configured with WithBounds.
// X is B x N x P and y is B x N.
func (cr *CensoredRegression) Fit(ctx context.Context, X *tensor.Dense3, y *mat.Dense) error {
	return cr.FitBounded(ctx, X, y, nil, nil)
}

// FitBounded is Fit with per-observation B x N bounds. A nil bound falls back
// to the scalar bound of the estimator.
func (cr *CensoredRegression) FitBounded(ctx context.Context, X *tensor.Dense3, y *mat.Dense, lower, upper mat.Matrix) error {
	const op = "CensoredRegression.Fit"
	if err := cr.validateParams(); err != nil {
		return err
	}
	if X == nil || y == nil {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	b, n, p := X.Dims()
	if err := checkResponse(op, y, b, n); err != nil {
		return err
	}
	lo, err := materialiseBound(op, lower, cr.lower, b, n)
	if err != nil {
		return err
	}
	hi, err := materialiseBound(op, upper, cr.upper, b, n)
	if err != nil {
		return err
	}
	if err := checkFinite(op, X.RawData(), y.RawMatrix().Data); err != nil {
		return err
	}
	if err := checkOrdered(lo, hi); err != nil {
		return err
	}

	design := X
	if cr.fitIntercept {
		design = X.WithIntercept()
	}
	pr := newProblem(cr.likelihood, design, y, lo, hi)

	logger := cr.logger.With(log.OperationKey, log.OperationFit)
	logger.Info("Fit started",
		log.BatchSizeKey, b,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.LikelihoodKey, string(cr.likelihood),
		log.SolverKey, cr.solver,
	)
	if pr.excluded > 0 {
		errors.Warn(errors.NewTruncationWarning(modelName, pr.excluded, b*n))
	}
	start := time.Now()

	theta, err := cr.initialise(ctx, pr)
	if err != nil {
		logger.Error("Initialisation failed", err, log.PhaseKey, log.PhaseInitialisation)
		return err
	}

	var res *fitResult
	switch cr.solver {
	case SolverLBFGS:
		res, err = cr.fitLBFGS(ctx, pr, theta, logger)
	default:
		res, err = cr.fitAdam(ctx, pr, theta, logger)
	}
	if err != nil {
		logger.Error("Fit failed", err, log.PhaseKey, log.PhaseTraining)
		return err
	}

	cr.store(pr, res, p)
	cr.state.SetDimensions(b, n, p)
	cr.state.SetFitted()

	if !res.converged {
		errors.Warn(errors.NewConvergenceWarning(modelName+"("+cr.solver+")", res.nIter, ""))
	}
	logger.Info("Fit completed",
		log.IterationKey, res.nIter,
		log.ConvergedKey, res.converged,
		log.BestLossKey, res.bestLoss,
		log.CensoredLeftKey, pr.left,
		log.CensoredRightKey, pr.right,
		log.ExcludedKey, pr.excluded,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitResult はソルバーの出力
type fitResult struct {
	theta     [][]float64 // 最良の損失を与えたパラメータ（要素ごと）
	logLik    []float64
	nIter     int
	converged bool
	history   []float64
	bestLoss  float64
}

// initialise は区間内の観測に対する最小二乗解から θ の初期値を作る
func (cr *CensoredRegression) initialise(ctx context.Context, pr *problem) ([][]float64, error) {
	theta := make([][]float64, pr.nBatch)
	err := parallel.ForEach(ctx, pr.nBatch, parallel.Workers(cr.nJobs), "CensoredRegression.initialise", func(b int) error {
		th := make([]float64, pr.nParams())
		rows := make([]int, 0, pr.nObs)
		yb := pr.y.RawRowView(b)
		for j, st := range pr.status[b] {
			if st == obsInterior && yb[j] > pr.lower.At(b, j) && yb[j] < pr.upper.At(b, j) {
				rows = append(rows, j)
			}
		}

		variance := 1.0
		if len(rows) > 0 {
			xs := mat.NewDense(len(rows), pr.nCoef, nil)
			ys := make([]float64, len(rows))
			xb := pr.x.Slice(b)
			for r, j := range rows {
				xs.SetRow(r, xb.RawRowView(j))
				ys[r] = yb[j]
			}
			ls, err := LeastSquares(xs, ys, false)
			if err != nil {
				return err
			}
			copy(th, ls.Coef)
			variance = ls.Variance
		}
		th[pr.nCoef] = math.Log(math.Max(math.Sqrt(variance), minSigma))
		theta[b] = th
		return nil
	})
	if err != nil {
		return nil, err
	}
	return theta, nil
}

// store は最良のパラメータを学習済み属性に書き込む
func (cr *CensoredRegression) store(pr *problem, res *fitResult, nFeatures int) {
	offset := 0
	if cr.fitIntercept {
		offset = 1
		cr.intercept_ = make([]float64, pr.nBatch)
	} else {
		cr.intercept_ = nil
	}
	cr.coef_ = mat.NewDense(pr.nBatch, nFeatures, nil)
	cr.sigma_ = make([]float64, pr.nBatch)
	for b, th := range res.theta {
		if cr.fitIntercept {
			cr.intercept_[b] = th[0]
		}
		cr.coef_.SetRow(b, th[offset:offset+nFeatures])
		cr.sigma_[b] = math.Exp(th[pr.nCoef])
	}
	cr.logLik_ = res.logLik
	cr.nIter_ = res.nIter
	cr.converged_ = res.converged
	cr.lossHistory_ = res.history
	cr.bestLoss_ = res.bestLoss
}

func checkResponse(op string, y *mat.Dense, b, n int) error {
	ry, cy := y.Dims()
	if ry != b {
		return errors.NewDimensionError(op, b, ry, 0)
	}
	if cy != n {
		return errors.NewDimensionError(op, n, cy, 1)
	}
	return nil
}

// materialiseBound は境界を B x N の行列にする。nil の場合はスカラー値で埋める
func materialiseBound(op string, bound mat.Matrix, scalar float64, b, n int) (*mat.Dense, error) {
	out := mat.NewDense(b, n, nil)
	if bound == nil {
		for i := 0; i < b; i++ {
			row := out.RawRowView(i)
			for j := range row {
				row[j] = scalar
			}
		}
		return out, nil
	}
	rb, cb := bound.Dims()
	if rb != b {
		return nil, errors.NewDimensionError(op, b, rb, 0)
	}
	if cb != n {
		return nil, errors.NewDimensionError(op, n, cb, 1)
	}
	out.Copy(bound)
	return out, nil
}

// checkOrdered は全ての観測で lower < upper であることを確認する
func checkOrdered(lo, hi *mat.Dense) error {
	b, n := lo.Dims()
	for i := 0; i < b; i++ {
		for j := 0; j < n; j++ {
			if !(lo.At(i, j) < hi.At(i, j)) {
				return errors.NewValidationError("bounds", "lower must be less than upper for every observation", [2]float64{lo.At(i, j), hi.At(i, j)})
			}
		}
	}
	return nil
}

// checkFinite は共変量と応答に NaN・Inf が含まれていないことを確認する
func checkFinite(op string, values ...[]float64) error {
	for _, v := range values {
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return errors.NewValueError(op, "input contains NaN or Inf")
			}
		}
	}
	return nil
}

// IsFitted returns whether the model has been fitted
func (cr *CensoredRegression) IsFitted() bool {
	return cr.state.IsFitted()
}

// Coef returns a copy of the B x P coefficient matrix, or nil before Fit.
func (cr *CensoredRegression) Coef() *mat.Dense {
	if !cr.state.IsFitted() {
		return nil
	}
	return mat.DenseCopyOf(cr.coef_)
}

// Intercept returns the per-element intercepts. It is nil without an intercept.
func (cr *CensoredRegression) Intercept() []float64 {
	return append([]float64(nil), cr.intercept_...)
}

// Sigma returns the per-element noise scales.
func (cr *CensoredRegression) Sigma() []float64 {
	return append([]float64(nil), cr.sigma_...)
}

// LogLikelihood returns the per-element log-likelihood at the fitted parameters.
func (cr *CensoredRegression) LogLikelihood() []float64 {
	return append([]float64(nil), cr.logLik_...)
}

// NIter returns the number of iterations run by the solver.
func (cr *CensoredRegression) NIter() int { return cr.nIter_ }

// Converged reports whether the stopping criterion was met.
func (cr *CensoredRegression) Converged() bool { return cr.converged_ }

// LossHistory returns the objective value at every iteration.
func (cr *CensoredRegression) LossHistory() []float64 {
	return append([]float64(nil), cr.lossHistory_...)
}

// BestLoss returns the lowest objective value, NaN before Fit.
func (cr *CensoredRegression) BestLoss() float64 { return cr.bestLoss_ }

// GetParams returns the hyperparameters
func (cr *CensoredRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"likelihood":    string(cr.likelihood),
		"lower":         cr.lower,
		"upper":         cr.upper,
		"fit_intercept": cr.fitIntercept,
		"solver":        cr.solver,
		"schedule":      cr.schedule,
		"learning_rate": cr.learningRate,
		"eta_min":       cr.etaMin,
		"weight_decay":  cr.weightDecay,
		"max_iter":      cr.maxIter,
		"tol":           cr.tol,
		"n_jobs":        cr.nJobs,
		"max_grad_norm": cr.maxGradNorm,
	}
}
