package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/censreg/core/model"
	"github.com/YuminosukeSato/censreg/core/tensor"
	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/stats/truncnorm"
)

// checkInput は予測系メソッドの入力形状を学習時の形状と照合する
func (cr *CensoredRegression) checkInput(method string, X *tensor.Dense3) error {
	if err := cr.state.RequireFitted(modelName, method); err != nil {
		return err
	}
	if X == nil {
		return errors.NewModelError(modelName+"."+method, "empty data", errors.ErrEmptyData)
	}
	nBatch, _, nFeatures := cr.state.GetDimensions()
	b, _, p := X.Dims()
	if b != nBatch {
		return errors.NewDimensionError(modelName+"."+method, nBatch, b, 0)
	}
	if p != nFeatures {
		return errors.NewDimensionError(modelName+"."+method, nFeatures, p, 2)
	}
	return nil
}

// Predict returns the latent mean Xβ (+ intercept) as a B x M matrix.
func (cr *CensoredRegression) Predict(X *tensor.Dense3) (*mat.Dense, error) {
	if err := cr.checkInput("Predict", X); err != nil {
		return nil, err
	}
	return cr.latentMean(X)
}

func (cr *CensoredRegression) latentMean(X *tensor.Dense3) (*mat.Dense, error) {
	mu, err := X.BatchMulVec(cr.coef_)
	if err != nil {
		return nil, err
	}
	if cr.intercept_ != nil {
		b, m := mu.Dims()
		for i := 0; i < b; i++ {
			row := mu.RawRowView(i)
			for j := 0; j < m; j++ {
				row[j] += cr.intercept_[i]
			}
		}
	}
	return mu, nil
}

// PredictMean returns the expected observed response under the fitted
// error model and the scalar bounds of the estimator: the truncated-normal
// mean for a truncated fit and the censored (Tobit) mean for a censored fit.
// After FitBounded use PredictMeanBounded with the same bounds.
func (cr *CensoredRegression) PredictMean(X *tensor.Dense3) (*mat.Dense, error) {
	return cr.PredictMeanBounded(X, nil, nil)
}

// PredictMeanBounded is PredictMean with per-observation B x M bounds.
// A nil bound falls back to the scalar bound of the estimator.
func (cr *CensoredRegression) PredictMeanBounded(X *tensor.Dense3, lower, upper mat.Matrix) (*mat.Dense, error) {
	const op = "CensoredRegression.PredictMean"
	if err := cr.checkInput("PredictMean", X); err != nil {
		return nil, err
	}
	b, m, _ := X.Dims()
	lo, err := materialiseBound(op, lower, cr.lower, b, m)
	if err != nil {
		return nil, err
	}
	hi, err := materialiseBound(op, upper, cr.upper, b, m)
	if err != nil {
		return nil, err
	}
	if err := checkOrdered(lo, hi); err != nil {
		return nil, err
	}
	mu, err := cr.latentMean(X)
	if err != nil {
		return nil, err
	}
	for i := 0; i < b; i++ {
		row := mu.RawRowView(i)
		sigma := cr.sigma_[i]
		for j := 0; j < m; j++ {
			l, u := lo.At(i, j), hi.At(i, j)
			if cr.likelihood == Censored {
				row[j] = censoredMean(row[j], sigma, l, u)
			} else {
				row[j] = truncnorm.TruncatedNormal{Loc: row[j], Scale: sigma, Lower: l, Upper: u}.Mean()
			}
		}
	}
	return mu, nil
}

// censoredMean は E[y] = lΦ(a) + uΦ(-b) + μΔ + σ(φ(a) - φ(b)) を返す
func censoredMean(mu, sigma, lower, upper float64) float64 {
	a := (lower - mu) / sigma
	b := (upper - mu) / sigma
	pdf := func(z float64) float64 { return math.Exp(truncnorm.LogNormalPDF(z)) }

	mean := mu*math.Exp(truncnorm.LogDelta(a, b)) + sigma*(pdf(a)-pdf(b))
	if !math.IsInf(lower, 0) {
		mean += lower * truncnorm.NormalCDF(a)
	}
	if !math.IsInf(upper, 0) {
		mean += upper * truncnorm.NormalCDF(-b)
	}
	return mean
}

// Score returns the mean log-likelihood per retained observation of y
// under the fitted parameters and the scalar bounds of the estimator.
// After FitBounded use ScoreBounded with the same bounds.
func (cr *CensoredRegression) Score(X *tensor.Dense3, y *mat.Dense) (float64, error) {
	return cr.ScoreBounded(X, y, nil, nil)
}

// ScoreBounded is Score with per-observation B x M bounds.
// A nil bound falls back to the scalar bound of the estimator.
func (cr *CensoredRegression) ScoreBounded(X *tensor.Dense3, y *mat.Dense, lower, upper mat.Matrix) (float64, error) {
	const op = "CensoredRegression.Score"
	if err := cr.checkInput("Score", X); err != nil {
		return 0, err
	}
	if y == nil {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	b, n, _ := X.Dims()
	if err := checkResponse(op, y, b, n); err != nil {
		return 0, err
	}
	lo, err := materialiseBound(op, lower, cr.lower, b, n)
	if err != nil {
		return 0, err
	}
	hi, err := materialiseBound(op, upper, cr.upper, b, n)
	if err != nil {
		return 0, err
	}
	if err := checkOrdered(lo, hi); err != nil {
		return 0, err
	}

	design := X
	if cr.intercept_ != nil {
		design = X.WithIntercept()
	}
	pr := newProblem(cr.likelihood, design, y, lo, hi)

	var total float64
	var count int
	for i := 0; i < b; i++ {
		total += pr.logLik(i, cr.theta(i), nil)
		count += pr.retained(i)
	}
	if count == 0 {
		return 0, errors.NewValueError(op, "no observations inside the truncation window")
	}
	return total / float64(count), nil
}

// theta はバッチ要素 b の学習済みパラメータを (β, log σ) の形で返す
func (cr *CensoredRegression) theta(b int) []float64 {
	_, p := cr.coef_.Dims()
	th := make([]float64, 0, p+2)
	if cr.intercept_ != nil {
		th = append(th, cr.intercept_[b])
	}
	th = append(th, cr.coef_.RawRowView(b)...)
	return append(th, math.Log(cr.sigma_[b]))
}

// ExportWeights はモデルの重みをエクスポート
func (cr *CensoredRegression) ExportWeights() (*model.BatchWeights, error) {
	if err := cr.state.RequireFitted(modelName, "ExportWeights"); err != nil {
		return nil, err
	}
	nBatch, nSamples, _ := cr.state.GetDimensions()

	params := cr.GetParams()
	// 境界は Lower/Upper に格納する（JSON は Inf を表現できない）
	delete(params, "lower")
	delete(params, "upper")

	w := &model.BatchWeights{
		ModelType:       modelName,
		Version:         modelVersion,
		Likelihood:      string(cr.likelihood),
		Lower:           model.Bound(cr.lower),
		Upper:           model.Bound(cr.upper),
		Coefficients:    make([][]float64, nBatch),
		Intercepts:      cr.Intercept(),
		Sigmas:          cr.Sigma(),
		Hyperparameters: params,
		Metadata: map[string]interface{}{
			"n_samples": nSamples,
			"n_iter":    cr.nIter_,
			"converged": cr.converged_,
		},
		IsFitted: true,
	}
	for b := range w.Coefficients {
		w.Coefficients[b] = append([]float64(nil), cr.coef_.RawRowView(b)...)
	}
	if !math.IsNaN(cr.bestLoss_) && !math.IsInf(cr.bestLoss_, 0) {
		w.Metadata["best_loss"] = cr.bestLoss_
	}
	w.Metadata["checksum"] = w.Checksum()
	return w, nil
}

// ImportWeights はエクスポートされた重みからモデルを復元する
func (cr *CensoredRegression) ImportWeights(w *model.BatchWeights) error {
	if w == nil {
		return errors.NewValueError("CensoredRegression.ImportWeights", "weights cannot be nil")
	}
	if w.ModelType != modelName {
		return errors.NewValueError("CensoredRegression.ImportWeights", "model type mismatch: expected "+modelName+", got "+w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if !w.IsFitted {
		return errors.NewValueError("CensoredRegression.ImportWeights", "weights are not fitted")
	}
	if sum, ok := w.Metadata["checksum"].(string); ok && sum != w.Checksum() {
		return errors.NewValueError("CensoredRegression.ImportWeights", "checksum mismatch: weights may be corrupted")
	}
	likelihood, err := ParseLikelihood(w.Likelihood)
	if err != nil {
		return err
	}
	cr.applyParams(w.Hyperparameters)

	cr.likelihood = likelihood
	cr.lower = model.BoundValue(w.Lower, -1)
	cr.upper = model.BoundValue(w.Upper, 1)
	cr.fitIntercept = len(w.Intercepts) > 0

	nBatch, nFeatures := len(w.Coefficients), len(w.Coefficients[0])
	cr.coef_ = mat.NewDense(nBatch, nFeatures, nil)
	for b, row := range w.Coefficients {
		cr.coef_.SetRow(b, row)
	}
	cr.intercept_ = nil
	if cr.fitIntercept {
		cr.intercept_ = append([]float64(nil), w.Intercepts...)
	}
	cr.sigma_ = append([]float64(nil), w.Sigmas...)
	cr.logLik_ = nil
	cr.lossHistory_ = nil
	cr.nIter_ = intParam(w.Metadata["n_iter"], 0)
	cr.converged_, _ = w.Metadata["converged"].(bool)
	cr.bestLoss_ = math.NaN()
	if v, ok := w.Metadata["best_loss"].(float64); ok {
		cr.bestLoss_ = v
	}

	cr.state.SetDimensions(nBatch, intParam(w.Metadata["n_samples"], 0), nFeatures)
	cr.state.SetFitted()
	return nil
}

// applyParams はエクスポートされたハイパーパラメータのうち既知のものを設定する。
// JSON を経由した数値は float64 になるため int と float64 の両方を受け付ける。
func (cr *CensoredRegression) applyParams(params map[string]interface{}) {
	if v, ok := params["solver"].(string); ok {
		cr.solver = v
	}
	if v, ok := params["schedule"].(string); ok {
		cr.schedule = v
	}
	cr.learningRate = floatParam(params["learning_rate"], cr.learningRate)
	cr.etaMin = floatParam(params["eta_min"], cr.etaMin)
	cr.weightDecay = floatParam(params["weight_decay"], cr.weightDecay)
	cr.tol = floatParam(params["tol"], cr.tol)
	cr.maxGradNorm = floatParam(params["max_grad_norm"], cr.maxGradNorm)
	cr.maxIter = intParam(params["max_iter"], cr.maxIter)
	cr.nJobs = intParam(params["n_jobs"], cr.nJobs)
}

func floatParam(v interface{}, def float64) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return def
	}
}

func intParam(v interface{}, def int) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return int(x)
	default:
		return def
	}
}
