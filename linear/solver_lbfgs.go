package linear

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/censreg/core/parallel"
	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/pkg/log"
)

// lossRecorder は各メジャーイテレーションの罰則なし損失を記録し、
// コンテキストが取り消された場合は最適化を中断する
type lossRecorder struct {
	ctx         context.Context
	weightDecay float64
	losses      []float64
}

func (r *lossRecorder) Init() error { return r.ctx.Err() }

func (r *lossRecorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op == optimize.InitIteration || op == optimize.MajorIteration {
		penalty := 0.5 * r.weightDecay * floats.Dot(loc.X, loc.X)
		r.losses = append(r.losses, loc.F-penalty)
	}
	return r.ctx.Err()
}

// fitLBFGS はバッチ要素ごとに独立した L-BFGS 問題を並列に解く。
// 要素 b の目的関数は -Σ_i ℓ_bi / B + (wd/2)||θ_b||²。
func (cr *CensoredRegression) fitLBFGS(ctx context.Context, pr *problem, theta [][]float64, logger log.Logger) (*fitResult, error) {
	const op = "CensoredRegression.fitLBFGS"
	scale := 1.0 / float64(pr.nBatch)
	wd := cr.weightDecay

	type elementResult struct {
		x         []float64
		status    optimize.Status
		iters     int
		losses    []float64
		converged bool
	}
	results := make([]elementResult, pr.nBatch)

	err := parallel.ForEach(ctx, pr.nBatch, parallel.Workers(cr.nJobs), op, func(b int) error {
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				return -pr.logLik(b, x, nil)*scale + 0.5*wd*floats.Dot(x, x)
			},
			Grad: func(grad, x []float64) {
				pr.logLik(b, x, grad)
				for k := range grad {
					grad[k] = -grad[k]*scale + wd*x[k]
				}
			},
		}
		rec := &lossRecorder{ctx: ctx, weightDecay: wd}
		settings := &optimize.Settings{
			MajorIterations: cr.maxIter,
			Converger: &optimize.FunctionConverge{
				Absolute:   cr.tol * scale,
				Iterations: 1,
			},
			Recorder: rec,
		}

		result, err := optimize.Minimize(problem, theta[b], settings, &optimize.LBFGS{})
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if result == nil {
			if err == nil {
				err = errors.New("optimizer returned no result")
			}
			return errors.Wrapf(err, "batch element %d", b)
		}

		x, perr := finiteParameters(result.X, result.Stats.MajorIterations)
		if perr != nil {
			return errors.Wrapf(perr, "batch element %d", b)
		}
		er := elementResult{
			x:      x,
			status: result.Status,
			iters:  result.Stats.MajorIterations,
			losses: rec.losses,
		}
		// ラインサーチの失敗などは警告扱い（得られた位置をそのまま使う）
		er.converged = err == nil && converged(result.Status)
		if err != nil {
			logger.Debug("L-BFGS stopped early",
				log.IterationKey, er.iters,
				log.BatchElementKey, b,
				"status", result.Status.String(),
			)
		}
		results[b] = er
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "fit aborted")
	}

	res := &fitResult{
		theta:     make([][]float64, pr.nBatch),
		logLik:    make([]float64, pr.nBatch),
		converged: true,
	}
	var total float64
	for b, er := range results {
		res.theta[b] = er.x
		res.logLik[b] = pr.logLik(b, er.x, nil)
		total += res.logLik[b]
		if er.iters > res.nIter {
			res.nIter = er.iters
		}
		res.converged = res.converged && er.converged
	}
	res.bestLoss = -total * scale
	if err := errors.CheckScalar("loss", res.bestLoss, res.nIter); err != nil {
		return nil, err
	}
	histories := make([][]float64, len(results))
	for b, er := range results {
		histories[b] = er.losses
	}
	res.history = combineHistories(histories)
	return res, nil
}

// finiteParameters は最適化結果のコピーを返す。NaN や Inf を含む場合はエラー。
func finiteParameters(x []float64, iter int) ([]float64, error) {
	if err := errors.CheckNumericalStability("parameters", x, iter); err != nil {
		return nil, err
	}
	return append([]float64(nil), x...), nil
}

// combineHistories は要素ごとの損失履歴を合計する。
// 早く終了した要素は最後の値を保持する。
func combineHistories(histories [][]float64) []float64 {
	length := 0
	for _, h := range histories {
		if len(h) > length {
			length = len(h)
		}
	}
	out := make([]float64, length)
	for _, h := range histories {
		if len(h) == 0 {
			continue
		}
		for t := range out {
			out[t] += h[min(t, len(h)-1)]
		}
	}
	return out
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.MethodConverge, optimize.FunctionThreshold:
		return true
	default:
		return false
	}
}
