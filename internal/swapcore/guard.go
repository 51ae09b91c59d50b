package swapcore

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// HasSufficientBalance reports whether balance covers value plus worst-case
// gas cost. Exact big-int arithmetic; no rounding.
func HasSufficientBalance(balance, value *big.Int, gasLimit uint64, maxFeePerGas *big.Int) bool {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), maxFeePerGas)
	cost.Add(cost, value)
	return balance.Cmp(cost) >= 0
}

// BalanceGuard fetches the wallet's native balance and verifies it against a
// pending transaction's total cost before submission.
type BalanceGuard struct {
	client ChainClient
	log    *zap.SugaredLogger
}

func NewBalanceGuard(client ChainClient, log *zap.SugaredLogger) *BalanceGuard {
	return &BalanceGuard{client: client, log: log}
}

// Check returns ErrInsufficientBalance when the wallet cannot cover
// value + gasLimit*maxFeePerGas.
func (g *BalanceGuard) Check(ctx context.Context, wallet common.Address, value *big.Int, gasLimit uint64, maxFeePerGas *big.Int) error {
	balance, err := g.client.BalanceAt(ctx, wallet, nil)
	if err != nil {
		return fmt.Errorf("balance query: %w", WrapCallError(err))
	}

	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), maxFeePerGas)
	total := new(big.Int).Add(gasCost, value)
	g.log.Infow("balance check",
		"wallet", wallet.Hex(),
		"balanceWei", balance.String(),
		"valueWei", value.String(),
		"gasCostWei", gasCost.String(),
		"totalWei", total.String(),
	)

	if balance.Cmp(total) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, total)
	}
	return nil
}
