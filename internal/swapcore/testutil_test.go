package swapcore

import (
	"bytes"
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swap-cycler/internal/config"
)

// fakeClient is a scripted ChainClient. Receipts become available as soon as
// a transaction is accepted, so tests never block in waitMined.
type fakeClient struct {
	header    *types.Header
	headerErr error

	tip    *big.Int
	tipErr error

	estimate    uint64
	estimateErr error

	balance    *big.Int
	balanceErr error

	tokenBalances map[common.Address]*big.Int

	startNonce uint64
	nonceErr   error

	sent         []*types.Transaction
	sendAttempts int
	sendErrAt    map[int]error
	revertAt     map[int]bool
	receipts     map[common.Hash]*types.Receipt
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		header:        &types.Header{Number: big.NewInt(1000), BaseFee: big.NewInt(1_000_000_000)},
		tipErr:        ethereum.NotFound,
		estimate:      100_000,
		balance:       config.MustParseEther("1"),
		tokenBalances: map[common.Address]*big.Int{},
		sendErrAt:     map[int]error{},
		revertAt:      map[int]bool{},
		receipts:      map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return f.header, f.headerErr
}

func (f *fakeClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	if f.tipErr != nil {
		return nil, f.tipErr
	}
	return f.tip, nil
}

func (f *fakeClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.estimate, nil
}

func (f *fakeClient) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To != nil && len(msg.Data) >= 4 && bytes.Equal(msg.Data[:4], balanceOfSelector) {
		bal, ok := f.tokenBalances[*msg.To]
		if !ok {
			bal = big.NewInt(0)
		}
		return common.LeftPadBytes(bal.Bytes(), 32), nil
	}
	return nil, nil
}

func (f *fakeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.startNonce, f.nonceErr
}

func (f *fakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	idx := f.sendAttempts
	f.sendAttempts++
	if err, ok := f.sendErrAt[idx]; ok {
		return err
	}
	f.sent = append(f.sent, tx)
	status := types.ReceiptStatusSuccessful
	if f.revertAt[idx] {
		status = types.ReceiptStatusFailed
	}
	f.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(1001 + idx)),
	}
	return nil
}

func (f *fakeClient) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

// fakeClock records every sleep and advances a synthetic now.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

var (
	testRouter = common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481")
	testUSDC   = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	testWETH   = common.HexToAddress("0x4200000000000000000000000000000000000006")
)

func testSettings() *config.Settings {
	return &config.Settings{
		RPCURL:           "http://localhost:8545",
		ChainID:          big.NewInt(8453),
		RouterAddress:    testRouter,
		USDCAddress:      testUSDC,
		WETHAddress:      testWETH,
		PoolFee:          big.NewInt(500),
		SqrtPriceLimit:   big.NewInt(4295128740),
		DefaultAmountWei: config.MustParseEther("0.00002"),
		PriorityFeeWei:   big.NewInt(50_000_000),
		FallbackGasWei:   big.NewInt(100_000_000),
		FallbackGasLimit: 350_000,
		BaseFeeMul:       2,
		DeadlineSeconds:  3600,
		StepCooldown:     2 * time.Second,
		MinCycleDelay:    5 * time.Second,
		MaxCycleDelay:    15 * time.Second,
		RequoteEachStep:  false,
	}
}

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func newTestSequencer(client *fakeClient, clock *fakeClock, cfg *config.Settings) *Sequencer {
	log := testLogger()
	pricer := NewGasPricer(client, cfg.PriorityFeeWei, cfg.FallbackGasWei, cfg.BaseFeeMul, log)
	estimator := NewGasEstimator(client, cfg.FallbackGasLimit, log)
	guard := NewBalanceGuard(client, log)
	return NewSequencer(client, pricer, estimator, guard, clock, cfg, log)
}

// Well-known throwaway development keys.
const (
	testKeyHexA = "4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f"
	testKeyHexB = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)
