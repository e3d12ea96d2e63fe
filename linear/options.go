package linear

import (
	"strings"

	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/pkg/log"
)

// Likelihood selects the error model of CensoredRegression.
type Likelihood string

const (
	// Truncated は区間外の観測が標本に現れない切断回帰
	Truncated Likelihood = "truncated"
	// Censored は区間外の値が境界に丸められて観測される打ち切り回帰（Tobit）
	Censored Likelihood = "censored"
)

// ParseLikelihood converts a configuration string to a Likelihood.
func ParseLikelihood(s string) (Likelihood, error) {
	switch l := Likelihood(strings.ToLower(strings.TrimSpace(s))); l {
	case Truncated, Censored:
		return l, nil
	case "tobit":
		return Censored, nil
	default:
		return "", errors.NewValidationError("likelihood", "must be 'truncated' or 'censored'", s)
	}
}

// Solver names the optimiser used by Fit.
const (
	SolverAdam  = "adam"
	SolverLBFGS = "lbfgs"
)

// Learning rate schedules for the adam solver.
const (
	ScheduleCosine      = "cosine"
	ScheduleConstant    = "constant"
	ScheduleInverseTime = "inverse_time"
)

// Option is a function that configures CensoredRegression
type Option func(*CensoredRegression)

// WithLikelihood sets the error model
func WithLikelihood(l Likelihood) Option {
	return func(cr *CensoredRegression) {
		cr.likelihood = l
	}
}

// WithBounds sets the scalar truncation/censoring bounds used by Fit.
// Use math.Inf for an open side.
func WithBounds(lower, upper float64) Option {
	return func(cr *CensoredRegression) {
		cr.lower = lower
		cr.upper = upper
	}
}

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(cr *CensoredRegression) {
		cr.fitIntercept = fit
	}
}

// WithSolver selects "adam" or "lbfgs"
func WithSolver(solver string) Option {
	return func(cr *CensoredRegression) {
		cr.solver = strings.ToLower(solver)
	}
}

// WithSchedule selects the learning rate schedule of the adam solver
func WithSchedule(schedule string) Option {
	return func(cr *CensoredRegression) {
		cr.schedule = strings.ToLower(schedule)
	}
}

// WithLearningRate sets the initial learning rate
func WithLearningRate(lr float64) Option {
	return func(cr *CensoredRegression) {
		cr.learningRate = lr
	}
}

// WithEtaMin sets the final learning rate of the cosine schedule
func WithEtaMin(etaMin float64) Option {
	return func(cr *CensoredRegression) {
		cr.etaMin = etaMin
	}
}

// WithWeightDecay sets the L2 penalty coefficient
func WithWeightDecay(wd float64) Option {
	return func(cr *CensoredRegression) {
		cr.weightDecay = wd
	}
}

// WithMaxIter sets the maximum number of iterations
func WithMaxIter(n int) Option {
	return func(cr *CensoredRegression) {
		cr.maxIter = n
	}
}

// WithTol sets the tolerance for the stopping criterion
func WithTol(tol float64) Option {
	return func(cr *CensoredRegression) {
		cr.tol = tol
	}
}

// WithNJobs sets the number of parallel jobs (<= 0 uses all CPUs)
func WithNJobs(n int) Option {
	return func(cr *CensoredRegression) {
		cr.nJobs = n
	}
}

// WithMaxGradNorm clips each element's gradient to this L2 norm (<= 0 disables)
func WithMaxGradNorm(maxNorm float64) Option {
	return func(cr *CensoredRegression) {
		cr.maxGradNorm = maxNorm
	}
}

// WithLogger replaces the component logger
func WithLogger(logger log.Logger) Option {
	return func(cr *CensoredRegression) {
		if logger != nil {
			cr.logger = logger
		}
	}
}
