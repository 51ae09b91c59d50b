package swapcore

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
)

// GasQuote holds EIP-1559 fee caps for one transaction.
type GasQuote struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// GasPricer derives fee caps from the latest header, degrading to a static
// quote when the network gives nothing usable. Quote never fails.
type GasPricer struct {
	client      ChainClient
	priorityFee *big.Int
	fallback    *big.Int
	baseFeeMul  int64
	log         *zap.SugaredLogger
}

func NewGasPricer(client ChainClient, priorityFee, fallback *big.Int, baseFeeMul int64, log *zap.SugaredLogger) *GasPricer {
	if baseFeeMul < 1 {
		baseFeeMul = 1
	}
	return &GasPricer{
		client:      client,
		priorityFee: new(big.Int).Set(priorityFee),
		fallback:    new(big.Int).Set(fallback),
		baseFeeMul:  baseFeeMul,
		log:         log,
	}
}

// Quote reads the last base fee and adds a priority fee on top. A failed
// header read or a pre-1559 chain yields the static fallback for both caps.
func (p *GasPricer) Quote(ctx context.Context) GasQuote {
	header, err := p.client.HeaderByNumber(ctx, nil)
	if err != nil || header.BaseFee == nil {
		if err != nil {
			p.log.Infow("gas quote: falling back to static price", "reason", WrapCallError(err).Summary, "fallbackWei", p.fallback.String())
		} else {
			p.log.Infow("gas quote: no base fee, falling back to static price", "fallbackWei", p.fallback.String())
		}
		return GasQuote{
			MaxFeePerGas:         new(big.Int).Set(p.fallback),
			MaxPriorityFeePerGas: new(big.Int).Set(p.fallback),
		}
	}

	tip := new(big.Int).Set(p.priorityFee)
	if suggested, err := p.client.SuggestGasTipCap(ctx); err == nil && suggested.Cmp(tip) > 0 {
		tip = suggested
	}
	maxFee := new(big.Int).Mul(header.BaseFee, big.NewInt(p.baseFeeMul))
	maxFee.Add(maxFee, tip)

	p.log.Infow("gas quote",
		"baseFeeWei", header.BaseFee.String(),
		"tipWei", tip.String(),
		"maxFeeWei", maxFee.String(),
	)
	return GasQuote{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}
}

const (
	gasBufferNum = 120
	gasBufferDen = 100
)

// GasEstimator simulates a draft and pads the result with 20% headroom.
// A failed simulation yields the fixed fallback limit, sized to cover the
// most expensive step of the sequence.
type GasEstimator struct {
	client        ChainClient
	fallbackLimit uint64
	log           *zap.SugaredLogger
}

func NewGasEstimator(client ChainClient, fallbackLimit uint64, log *zap.SugaredLogger) *GasEstimator {
	return &GasEstimator{client: client, fallbackLimit: fallbackLimit, log: log}
}

func (e *GasEstimator) Estimate(ctx context.Context, msg ethereum.CallMsg) uint64 {
	g, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		e.log.Warnw("gas estimate failed, using fallback limit",
			"reason", WrapCallError(err).Summary,
			"fallbackLimit", e.fallbackLimit,
		)
		return e.fallbackLimit
	}
	return g * gasBufferNum / gasBufferDen
}
