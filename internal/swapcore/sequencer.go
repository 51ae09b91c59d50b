package swapcore

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"swap-cycler/internal/config"
)

// State names one step of the swap cycle.
type State int

const (
	StateSwapIn State = iota
	StateApproveOut
	StateSwapBack
	StateApproveWrapped
	StateWithdraw
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSwapIn:
		return "swap-in"
	case StateApproveOut:
		return "approve-out"
	case StateSwapBack:
		return "swap-back"
	case StateApproveWrapped:
		return "approve-wrapped"
	case StateWithdraw:
		return "withdraw"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Transition table for a full cycle. Any step error moves to StateFailed.
var nextState = map[State]State{
	StateSwapIn:         StateApproveOut,
	StateApproveOut:     StateSwapBack,
	StateSwapBack:       StateApproveWrapped,
	StateApproveWrapped: StateWithdraw,
	StateWithdraw:       StateDone,
}

// WalletContext is one wallet's signing identity plus its locally tracked
// nonce. The nonce is refreshed from the network once per cycle and bumped
// exactly once per submitted transaction.
type WalletContext struct {
	key     *ecdsa.PrivateKey
	Address common.Address
	nonce   uint64
}

func NewWalletContext(keyHex string) (*WalletContext, error) {
	h := strings.TrimSpace(strings.TrimPrefix(keyHex, "0x"))
	if h == "" {
		return nil, errors.New("empty private key")
	}
	key, err := gethcrypto.HexToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &WalletContext{
		key:     key,
		Address: gethcrypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// RefreshNonce re-syncs the local counter with the network's pending nonce.
func (w *WalletContext) RefreshNonce(ctx context.Context, client ChainClient) error {
	n, err := client.PendingNonceAt(ctx, w.Address)
	if err != nil {
		return fmt.Errorf("nonce query: %w", WrapCallError(err))
	}
	w.nonce = n
	return nil
}

const receiptPollInterval = 1 * time.Second

// Sequencer drives the five-step cycle for one wallet:
// swap ETH->USDC, approve USDC, swap USDC->WETH, approve WETH, unwrap.
type Sequencer struct {
	client    ChainClient
	pricer    *GasPricer
	estimator *GasEstimator
	guard     *BalanceGuard
	clock     Clock
	cfg       *config.Settings
	log       *zap.SugaredLogger
}

func NewSequencer(client ChainClient, pricer *GasPricer, estimator *GasEstimator, guard *BalanceGuard, clock Clock, cfg *config.Settings, log *zap.SugaredLogger) *Sequencer {
	return &Sequencer{
		client:    client,
		pricer:    pricer,
		estimator: estimator,
		guard:     guard,
		clock:     clock,
		cfg:       cfg,
		log:       log,
	}
}

// RunCycle executes the full chain with consecutive nonces. Steps never
// overlap: each waits for its receipt, then cools down before the next
// balance read. A step failure abandons the rest of the cycle; confirmed
// steps are not rolled back.
func (s *Sequencer) RunCycle(ctx context.Context, w *WalletContext, amountWei *big.Int) error {
	if err := w.RefreshNonce(ctx, s.client); err != nil {
		return err
	}
	quote := s.pricer.Quote(ctx)

	for state := StateSwapIn; state != StateDone; state = nextState[state] {
		if s.cfg.RequoteEachStep {
			quote = s.pricer.Quote(ctx)
		}
		if err := s.execStep(ctx, w, state, amountWei, quote); err != nil {
			return stepError(state, err)
		}
		if nextState[state] != StateDone {
			s.clock.Sleep(s.cfg.StepCooldown)
		}
	}
	return nil
}

// SingleSwap runs only the ETH->USDC leg with its own quote and guard.
func (s *Sequencer) SingleSwap(ctx context.Context, w *WalletContext, amountWei *big.Int) error {
	if err := w.RefreshNonce(ctx, s.client); err != nil {
		return err
	}
	quote := s.pricer.Quote(ctx)
	if err := s.execStep(ctx, w, StateSwapIn, amountWei, quote); err != nil {
		return stepError(StateSwapIn, err)
	}
	return nil
}

func (s *Sequencer) execStep(ctx context.Context, w *WalletContext, state State, amountWei *big.Int, quote GasQuote) error {
	to, value, data, err := s.buildStep(ctx, w, state, amountWei)
	if err != nil {
		return err
	}

	gasLimit := s.estimator.Estimate(ctx, ethereum.CallMsg{
		From:  w.Address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err := s.guard.Check(ctx, w.Address, value, gasLimit, quote.MaxFeePerGas); err != nil {
		return err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.cfg.ChainID,
		Nonce:     w.nonce,
		GasTipCap: quote.MaxPriorityFeePerGas,
		GasFeeCap: quote.MaxFeePerGas,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.cfg.ChainID), w.key)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("broadcast: %w", WrapCallError(err))
	}
	w.nonce++
	s.log.Infow("transaction submitted",
		"state", state.String(),
		"wallet", w.Address.Hex(),
		"nonce", signed.Nonce(),
		"hash", signed.Hash().Hex(),
		"gasLimit", gasLimit,
	)

	receipt, err := s.waitMined(ctx, signed.Hash())
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: hash=%s", ErrTxReverted, signed.Hash().Hex())
	}
	s.log.Infow("transaction confirmed",
		"state", state.String(),
		"hash", signed.Hash().Hex(),
		"block", receipt.BlockNumber.Uint64(),
	)
	return nil
}

// buildStep constructs the destination, value and calldata for a state.
// Swap-back and withdraw size themselves from the balance observed after the
// previous step settled; the amounts are never pre-computed.
func (s *Sequencer) buildStep(ctx context.Context, w *WalletContext, state State, amountWei *big.Int) (common.Address, *big.Int, []byte, error) {
	zero := big.NewInt(0)
	deadline := big.NewInt(s.clock.Now().Unix() + s.cfg.DeadlineSeconds)

	switch state {
	case StateSwapIn:
		data, err := PackSwap(s.cfg.WETHAddress, s.cfg.USDCAddress, s.cfg.PoolFee, w.Address, deadline, amountWei, s.cfg.SqrtPriceLimit)
		return s.cfg.RouterAddress, amountWei, data, err

	case StateApproveOut:
		data, err := PackApprove(s.cfg.RouterAddress)
		return s.cfg.USDCAddress, zero, data, err

	case StateSwapBack:
		bal, err := TokenBalance(ctx, s.client, s.cfg.USDCAddress, w.Address)
		if err != nil {
			return common.Address{}, nil, nil, err
		}
		if bal.Sign() == 0 {
			return common.Address{}, nil, nil, errors.New("no intermediate token balance to swap back")
		}
		data, err := PackSwap(s.cfg.USDCAddress, s.cfg.WETHAddress, s.cfg.PoolFee, w.Address, deadline, bal, s.cfg.SqrtPriceLimit)
		return s.cfg.RouterAddress, zero, data, err

	case StateApproveWrapped:
		data, err := PackApprove(s.cfg.RouterAddress)
		return s.cfg.WETHAddress, zero, data, err

	case StateWithdraw:
		bal, err := TokenBalance(ctx, s.client, s.cfg.WETHAddress, w.Address)
		if err != nil {
			return common.Address{}, nil, nil, err
		}
		if bal.Sign() == 0 {
			return common.Address{}, nil, nil, errors.New("no wrapped balance to withdraw")
		}
		data, err := PackWithdraw(bal)
		return s.cfg.WETHAddress, zero, data, err
	}
	return common.Address{}, nil, nil, fmt.Errorf("no builder for state %s", state)
}

func (s *Sequencer) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			s.log.Debugw("receipt poll", "hash", hash.Hex(), "reason", WrapCallError(err).Summary)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.clock.Sleep(receiptPollInterval)
	}
}
