package swapcore

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-cycler/internal/config"
)

func newTestRunner(client *fakeClient, clock *fakeClock, cfg *config.Settings) *Runner {
	seq := newTestSequencer(client, clock, cfg)
	return NewRunner(seq, cfg, clock, rand.New(rand.NewSource(1)), testLogger())
}

func TestRunnerTallyMatchesPlan(t *testing.T) {
	client := newFakeClient()
	cfg := testSettings()
	clock := newFakeClock()
	runner := newTestRunner(client, clock, cfg)

	w, err := NewWalletContext(testKeyHexA)
	require.NoError(t, err)

	plan := config.SwapPlan{NumberOfSwaps: 3, AmountWei: cfg.DefaultAmountWei, Sequential: false}
	res := runner.Run(context.Background(), w, plan)

	assert.Equal(t, plan.NumberOfSwaps, res.Successes+res.Failures)
	assert.Equal(t, 3, res.Successes)
	assert.Equal(t, 0, res.Failures)
	assert.Len(t, client.sent, 3, "one independent swap per cycle")
}

func TestRunnerIsolatesFailedCycles(t *testing.T) {
	client := newFakeClient()
	client.sendErrAt[1] = errors.New("connection reset by peer") // second cycle's broadcast
	cfg := testSettings()
	runner := newTestRunner(client, newFakeClock(), cfg)

	w, err := NewWalletContext(testKeyHexA)
	require.NoError(t, err)

	plan := config.SwapPlan{NumberOfSwaps: 3, AmountWei: cfg.DefaultAmountWei, Sequential: false}
	res := runner.Run(context.Background(), w, plan)

	assert.Equal(t, 2, res.Successes)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, plan.NumberOfSwaps, res.Successes+res.Failures)
}

func TestRunnerZeroSwapsDoesNothing(t *testing.T) {
	client := newFakeClient()
	cfg := testSettings()
	clock := newFakeClock()
	runner := newTestRunner(client, clock, cfg)

	w, err := NewWalletContext(testKeyHexA)
	require.NoError(t, err)

	res := runner.Run(context.Background(), w, config.SwapPlan{NumberOfSwaps: 0, AmountWei: cfg.DefaultAmountWei})
	assert.Equal(t, 0, res.Successes)
	assert.Equal(t, 0, res.Failures)
	assert.Empty(t, client.sent)
	assert.Empty(t, clock.sleeps)
}

func TestRunnerPausesBetweenCyclesWithinBounds(t *testing.T) {
	client := newFakeClient()
	cfg := testSettings()
	clock := newFakeClock()
	runner := newTestRunner(client, clock, cfg)

	w, err := NewWalletContext(testKeyHexA)
	require.NoError(t, err)

	plan := config.SwapPlan{NumberOfSwaps: 4, AmountWei: cfg.DefaultAmountWei, Sequential: false}
	runner.Run(context.Background(), w, plan)

	// Three inter-cycle pauses for four cycles, none after the last.
	require.Len(t, clock.sleeps, 3)
	for _, d := range clock.sleeps {
		assert.GreaterOrEqual(t, d, cfg.MinCycleDelay)
		assert.Less(t, d, cfg.MaxCycleDelay)
	}
}

func TestRunnerUnderfundedWalletSubmitsNothing(t *testing.T) {
	client := newFakeClient()
	client.balance = big.NewInt(1)
	cfg := testSettings()
	runner := newTestRunner(client, newFakeClock(), cfg)

	w, err := NewWalletContext(testKeyHexA)
	require.NoError(t, err)

	plan := config.SwapPlan{NumberOfSwaps: 1, AmountWei: cfg.DefaultAmountWei, Sequential: true}
	res := runner.Run(context.Background(), w, plan)

	assert.Equal(t, 0, res.Successes)
	assert.Equal(t, 1, res.Failures)
	assert.Empty(t, client.sent)
}

func TestRunnerSequentialPlanRunsFullCycles(t *testing.T) {
	client := newFakeClient()
	client.tokenBalances[testUSDC] = big.NewInt(5_000_000)
	client.tokenBalances[testWETH] = big.NewInt(1_000)
	cfg := testSettings()
	runner := newTestRunner(client, newFakeClock(), cfg)

	w, err := NewWalletContext(testKeyHexA)
	require.NoError(t, err)

	plan := config.SwapPlan{NumberOfSwaps: 2, AmountWei: cfg.DefaultAmountWei, Sequential: true}
	res := runner.Run(context.Background(), w, plan)

	assert.Equal(t, 2, res.Successes)
	assert.Len(t, client.sent, 10, "five transactions per sequential cycle")
}
