package swapcore

import (
	"context"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swap-cycler/internal/config"
)

// SessionResult tallies one wallet's run. Successes+Failures always equals
// the planned number of swaps.
type SessionResult struct {
	Wallet    common.Address
	Successes int
	Failures  int
}

// Runner repeats swap cycles for a single wallet. A failed cycle is counted
// and the loop moves on; only the enclosing context stops it early.
type Runner struct {
	seq   *Sequencer
	cfg   *config.Settings
	clock Clock
	rng   *rand.Rand
	log   *zap.SugaredLogger
}

func NewRunner(seq *Sequencer, cfg *config.Settings, clock Clock, rng *rand.Rand, log *zap.SugaredLogger) *Runner {
	return &Runner{seq: seq, cfg: cfg, clock: clock, rng: rng, log: log}
}

func (r *Runner) Run(ctx context.Context, w *WalletContext, plan config.SwapPlan) SessionResult {
	res := SessionResult{Wallet: w.Address}

	for i := 0; i < plan.NumberOfSwaps; i++ {
		err := r.runOne(ctx, w, plan)
		if err != nil {
			res.Failures++
			r.log.Warnw("swap cycle failed",
				"wallet", w.Address.Hex(),
				"cycle", i+1,
				"of", plan.NumberOfSwaps,
				"error", err.Error(),
			)
		} else {
			res.Successes++
			r.log.Infow("swap cycle complete",
				"wallet", w.Address.Hex(),
				"cycle", i+1,
				"of", plan.NumberOfSwaps,
			)
		}
		if i < plan.NumberOfSwaps-1 {
			r.clock.Sleep(r.cycleDelay())
		}
	}
	return res
}

func (r *Runner) runOne(ctx context.Context, w *WalletContext, plan config.SwapPlan) error {
	if r.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CycleTimeout)
		defer cancel()
	}
	if plan.Sequential {
		return r.seq.RunCycle(ctx, w, plan.AmountWei)
	}
	return r.seq.SingleSwap(ctx, w, plan.AmountWei)
}

// cycleDelay draws a uniform pause from [MinCycleDelay, MaxCycleDelay).
func (r *Runner) cycleDelay() time.Duration {
	span := int64(r.cfg.MaxCycleDelay - r.cfg.MinCycleDelay)
	return r.cfg.MinCycleDelay + time.Duration(r.rng.Int63n(span))
}
