package swapcore

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const routerABIJSON = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "address", "name": "recipient", "type": "address"},
					{"internalType": "uint256", "name": "deadline", "type": "uint256"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct ISwapRouter.ExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "exactInputSingle",
		"outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

const erc20ABIJSON = `[
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const wethABIJSON = `[
	{
		"inputs": [{"internalType": "uint256", "name": "wad", "type": "uint256"}],
		"name": "withdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	routerABI abi.ABI
	erc20ABI  abi.ABI
	wethABI   abi.ABI

	// 2^256 - 1, the unlimited ERC-20 allowance.
	maxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func init() {
	routerABI = mustABI(routerABIJSON)
	erc20ABI = mustABI(erc20ABIJSON)
	wethABI = mustABI(wethABIJSON)
}

func mustABI(src string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return a
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// PackSwap encodes an exactInputSingle call. Minimum output is hard zero;
// the price limit is the fixed routing bound from settings.
func PackSwap(tokenIn, tokenOut common.Address, fee *big.Int, recipient common.Address, deadline, amountIn, sqrtPriceLimit *big.Int) ([]byte, error) {
	data, err := routerABI.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               fee,
		Recipient:         recipient,
		Deadline:          deadline,
		AmountIn:          amountIn,
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: sqrtPriceLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	return data, nil
}

// PackApprove encodes an unlimited approval for spender.
func PackApprove(spender common.Address) ([]byte, error) {
	data, err := erc20ABI.Pack("approve", spender, maxApproval)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return data, nil
}

// PackWithdraw encodes a WETH withdraw(wad) call.
func PackWithdraw(amount *big.Int) ([]byte, error) {
	data, err := wethABI.Pack("withdraw", amount)
	if err != nil {
		return nil, fmt.Errorf("pack withdraw: %w", err)
	}
	return data, nil
}

// balanceOf(address) selector.
var balanceOfSelector = common.FromHex("0x70a08231")

// TokenBalance reads an ERC-20 balance via raw eth_call.
func TokenBalance(ctx context.Context, client ChainClient, token, owner common.Address) (*big.Int, error) {
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(owner.Bytes(), 32)...)
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", WrapCallError(err))
	}
	if len(res) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(res), nil
}
