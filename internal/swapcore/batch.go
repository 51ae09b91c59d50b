package swapcore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"swap-cycler/internal/config"
)

// BatchReport aggregates all wallet sessions after the run completes.
type BatchReport struct {
	Sessions       []SessionResult
	TotalSuccesses int
	TotalFailures  int
}

// SuccessRate returns the percentage of successful cycles; 0 when nothing ran.
func (b *BatchReport) SuccessRate() float64 {
	total := b.TotalSuccesses + b.TotalFailures
	if total == 0 {
		return 0
	}
	return float64(b.TotalSuccesses) / float64(total) * 100
}

// Orchestrator processes wallets strictly one at a time; a single RPC
// endpoint and per-wallet nonce tracking leave no room for parallelism.
type Orchestrator struct {
	runner *Runner
	log    *zap.SugaredLogger
}

func NewOrchestrator(runner *Runner, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{runner: runner, log: log}
}

// Run validates every key up front (a bad key is a configuration error and
// aborts the whole batch), then runs each wallet end to end.
func (o *Orchestrator) Run(ctx context.Context, keys []string, plan config.SwapPlan) (*BatchReport, error) {
	wallets := make([]*WalletContext, 0, len(keys))
	for i, k := range keys {
		w, err := NewWalletContext(k)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i+1, err)
		}
		wallets = append(wallets, w)
	}

	report := &BatchReport{}
	for i, w := range wallets {
		o.log.Infow("processing wallet",
			"index", i+1,
			"total", len(wallets),
			"wallet", w.Address.Hex(),
		)
		res := o.runner.Run(ctx, w, plan)
		report.Sessions = append(report.Sessions, res)
		report.TotalSuccesses += res.Successes
		report.TotalFailures += res.Failures
	}
	return report, nil
}
