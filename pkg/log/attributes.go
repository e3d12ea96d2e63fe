// Package log defines standard attribute keys for estimation logs.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that logs from different estimators can be filtered
// and aggregated uniformly.
package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "CensoredRegression", "LeastSquares"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the estimator lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// BatchSizeKey is the number of independent regression problems (B).
	BatchSizeKey = "data.batch_size"

	// BatchElementKey is the index of a single batch element.
	BatchElementKey = "data.batch_element"

	// SamplesKey is the number of observations per batch element (N).
	SamplesKey = "data.samples"

	// FeaturesKey is the number of covariates per observation (P).
	FeaturesKey = "data.features"

	// CensoredLeftKey counts observations at or below the lower bound.
	CensoredLeftKey = "data.censored_left"

	// CensoredRightKey counts observations at or above the upper bound.
	CensoredRightKey = "data.censored_right"

	// ExcludedKey counts observations dropped from a truncated sample.
	ExcludedKey = "data.excluded"
)

// Optimisation and Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the objective value.
	LossKey = "metrics.loss"

	// BestLossKey records the lowest objective value seen so far.
	BestLossKey = "metrics.best_loss"

	// LogLikelihoodKey records the total log-likelihood of a fit.
	LogLikelihoodKey = "metrics.log_likelihood"

	// IterationKey records the current optimiser iteration.
	IterationKey = "training.iteration"

	// ConvergedKey records whether the stopping criterion was met.
	ConvergedKey = "training.converged"

	// LearningRateKey records the current learning rate.
	LearningRateKey = "hyperparams.learning_rate"

	// SolverKey names the optimiser ("adam", "lbfgs").
	SolverKey = "hyperparams.solver"

	// LikelihoodKey names the error model ("truncated", "censored").
	LikelihoodKey = "hyperparams.likelihood"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseInitialisation = "initialisation"
	PhaseTraining       = "training"
	PhaseInference      = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorNumerical         = "NUMERICAL_INSTABILITY"
)
