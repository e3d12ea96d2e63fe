package linear

import (
	"context"
	"math"

	"github.com/YuminosukeSato/censreg/core/parallel"
	"github.com/YuminosukeSato/censreg/optim"
	"github.com/YuminosukeSato/censreg/pkg/errors"
	"github.com/YuminosukeSato/censreg/pkg/log"
)

// scheduler は設定されたスケジュール名から学習率スケジューラを作る
func (cr *CensoredRegression) scheduler() optim.Scheduler {
	switch cr.schedule {
	case ScheduleConstant:
		return optim.Constant{Value: cr.learningRate}
	case ScheduleInverseTime:
		return optim.InverseTime{BaseLR: cr.learningRate, Decay: 0.1}
	default:
		return optim.CosineAnnealing{BaseLR: cr.learningRate, EtaMin: cr.etaMin, TMax: cr.maxIter}
	}
}

// fitAdam は全バッチ要素を同時に Adam で更新する。
// 損失は -Σ_b Σ_i ℓ_bi / B で、|loss - prevLoss| <= tol で停止する。
func (cr *CensoredRegression) fitAdam(ctx context.Context, pr *problem, theta [][]float64, logger log.Logger) (*fitResult, error) {
	const op = "CensoredRegression.fitAdam"
	workers := parallel.Workers(cr.nJobs)
	scale := 1.0 / float64(pr.nBatch)

	adams := make([]*optim.Adam, pr.nBatch)
	grads := make([][]float64, pr.nBatch)
	best := make([][]float64, pr.nBatch)
	for b := range adams {
		adams[b] = optim.NewAdam(pr.nParams(),
			optim.WithLR(cr.learningRate),
			optim.WithWeightDecay(cr.weightDecay),
			optim.WithMaxGradNorm(cr.maxGradNorm),
		)
		grads[b] = make([]float64, pr.nParams())
		best[b] = append([]float64(nil), theta[b]...)
	}
	ll := make([]float64, pr.nBatch)
	bestLL := make([]float64, pr.nBatch)

	sched := cr.scheduler()
	res := &fitResult{bestLoss: math.Inf(1), history: make([]float64, 0, cr.maxIter)}
	prevLoss := math.NaN()
	debug := logger.Enabled(ctx, log.LevelDebug)

	for iter := 0; iter < cr.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "fit aborted")
		}

		err := parallel.ForEach(ctx, pr.nBatch, workers, op, func(b int) error {
			ll[b] = pr.logLik(b, theta[b], grads[b])
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "fit aborted")
		}

		var total float64
		for _, v := range ll {
			total += v
		}
		loss := -total * scale
		if err := errors.CheckScalar("loss", loss, iter); err != nil {
			return nil, err
		}
		res.history = append(res.history, loss)
		res.nIter = iter + 1

		if loss < res.bestLoss {
			res.bestLoss = loss
			for b := range theta {
				copy(best[b], theta[b])
			}
			copy(bestLL, ll)
		}

		lr := sched.LR(iter)
		if debug {
			logger.Debug("Iteration",
				log.IterationKey, iter,
				log.LossKey, loss,
				log.BestLossKey, res.bestLoss,
				log.LearningRateKey, lr,
			)
		}

		if iter > 0 && math.Abs(loss-prevLoss) <= cr.tol {
			res.converged = true
			break
		}
		prevLoss = loss

		err = parallel.ForEach(ctx, pr.nBatch, workers, op, func(b int) error {
			g := grads[b]
			// 損失は負の対数尤度の平均なので勾配の符号を反転してスケールする
			for k := range g {
				g[k] *= -scale
			}
			adams[b].SetLR(lr)
			return adams[b].Step(theta[b], g)
		})
		if err != nil {
			return nil, errors.Wrap(err, "fit aborted")
		}
	}

	res.theta = best
	res.logLik = bestLL
	return res, nil
}
