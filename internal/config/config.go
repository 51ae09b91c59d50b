package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// Settings keeps all network-level options. Built once at startup and treated
// as read-only by every component.
type Settings struct {
	RPCURL        string
	ChainID       *big.Int
	RouterAddress common.Address
	USDCAddress   common.Address
	WETHAddress   common.Address
	PoolFee       *big.Int

	// Fixed routing bound passed through to the router on every swap.
	SqrtPriceLimit *big.Int

	DefaultAmountWei *big.Int
	PriorityFeeWei   *big.Int
	FallbackGasWei   *big.Int
	FallbackGasLimit uint64
	BaseFeeMul       int64

	DeadlineSeconds int64
	StepCooldown    time.Duration
	MinCycleDelay   time.Duration
	MaxCycleDelay   time.Duration
	CycleTimeout    time.Duration

	// Re-quote fees before every step instead of once per cycle.
	RequoteEachStep bool
}

const (
	defaultRPCURL     = "https://mainnet.base.org"
	defaultChainID    = 8453
	defaultRouterAddr = "0x2626664c2603336E57B271c5C0b26F421741e481"
	defaultUSDCAddr   = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	defaultWETHAddr   = "0x4200000000000000000000000000000000000006"
	defaultPoolFee    = 500

	// Lowest valid sqrt price bound plus one; the router treats it as "no bound".
	defaultSqrtPriceLimit = "4295128740"

	defaultAmountETH        = "0.00002"
	defaultPriorityFeeGwei  = "0.05"
	defaultFallbackGasGwei  = "0.1"
	defaultFallbackGasLimit = 350000
	defaultBaseFeeMul       = 2
	defaultDeadlineSeconds  = 3600
	defaultStepCooldownMS   = 2000
	defaultMinCycleDelayMS  = 5000
	defaultMaxCycleDelayMS  = 15000
	defaultCycleTimeoutMS   = 180000
)

// Load reads network settings from the environment, falling back to the
// built-in defaults. Malformed numeric values fall back too; malformed
// addresses are an error.
func Load() (Settings, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return def
	}
	getInt64 := func(key string, def int64) int64 {
		s := get(key, "")
		if s == "" {
			return def
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return def
	}
	getBool := func(key string, def bool) bool {
		s := strings.ToLower(get(key, ""))
		if s == "" {
			return def
		}
		return s == "1" || s == "true" || s == "yes" || s == "on"
	}
	getMS := func(key string, defMS int64) time.Duration {
		return time.Duration(getInt64(key, defMS)) * time.Millisecond
	}

	st := Settings{}
	st.RPCURL = get("RPC_URL", defaultRPCURL)
	st.ChainID = big.NewInt(getInt64("CHAIN_ID", defaultChainID))

	routerHex := get("ROUTER_ADDRESS", defaultRouterAddr)
	usdcHex := get("USDC_ADDRESS", defaultUSDCAddr)
	wethHex := get("WETH_ADDRESS", defaultWETHAddr)
	for name, hex := range map[string]string{"ROUTER_ADDRESS": routerHex, "USDC_ADDRESS": usdcHex, "WETH_ADDRESS": wethHex} {
		if !common.IsHexAddress(hex) {
			return Settings{}, fmt.Errorf("%s: invalid address %q", name, hex)
		}
	}
	st.RouterAddress = common.HexToAddress(routerHex)
	st.USDCAddress = common.HexToAddress(usdcHex)
	st.WETHAddress = common.HexToAddress(wethHex)
	st.PoolFee = big.NewInt(getInt64("POOL_FEE", defaultPoolFee))

	limit, ok := new(big.Int).SetString(get("SQRT_PRICE_LIMIT", defaultSqrtPriceLimit), 10)
	if !ok {
		return Settings{}, fmt.Errorf("SQRT_PRICE_LIMIT: not a decimal integer")
	}
	st.SqrtPriceLimit = limit

	amount, err := ParseEtherAmount(get("DEFAULT_AMOUNT_ETH", defaultAmountETH))
	if err != nil {
		return Settings{}, fmt.Errorf("DEFAULT_AMOUNT_ETH: %w", err)
	}
	st.DefaultAmountWei = amount

	tip, err := ParseGweiAmount(get("PRIORITY_FEE_GWEI", defaultPriorityFeeGwei))
	if err != nil {
		return Settings{}, fmt.Errorf("PRIORITY_FEE_GWEI: %w", err)
	}
	st.PriorityFeeWei = tip

	fb, err := ParseGweiAmount(get("FALLBACK_GAS_GWEI", defaultFallbackGasGwei))
	if err != nil {
		return Settings{}, fmt.Errorf("FALLBACK_GAS_GWEI: %w", err)
	}
	st.FallbackGasWei = fb

	st.FallbackGasLimit = uint64(getInt64("FALLBACK_GAS_LIMIT", defaultFallbackGasLimit))
	st.BaseFeeMul = getInt64("BASEFEE_MUL", defaultBaseFeeMul)
	st.DeadlineSeconds = getInt64("DEADLINE_SECONDS", defaultDeadlineSeconds)
	st.StepCooldown = getMS("STEP_COOLDOWN_MS", defaultStepCooldownMS)
	st.MinCycleDelay = getMS("MIN_CYCLE_DELAY_MS", defaultMinCycleDelayMS)
	st.MaxCycleDelay = getMS("MAX_CYCLE_DELAY_MS", defaultMaxCycleDelayMS)
	st.CycleTimeout = getMS("CYCLE_TIMEOUT_MS", defaultCycleTimeoutMS)
	st.RequoteEachStep = getBool("REQUOTE_EACH_STEP", true)

	if st.MaxCycleDelay <= st.MinCycleDelay {
		return Settings{}, fmt.Errorf("MAX_CYCLE_DELAY_MS must exceed MIN_CYCLE_DELAY_MS")
	}
	return st, nil
}

// SwapPlan is the per-run plan read from the JSON config file.
type SwapPlan struct {
	NumberOfSwaps int
	AmountWei     *big.Int
	Sequential    bool
}

type swapFileJSON struct {
	NumberOfSwaps  *int   `json:"numberOfSwaps"`
	AmountPerSwap  string `json:"amountPerSwap"`
	SequentialSwap bool   `json:"sequentialSwap"`
}

// LoadSwapPlan parses the swap config file. amountPerSwap is optional and
// falls back to defaultAmount.
func LoadSwapPlan(path string, defaultAmount *big.Int) (SwapPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SwapPlan{}, fmt.Errorf("read swap config: %w", err)
	}
	var raw swapFileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return SwapPlan{}, fmt.Errorf("parse swap config: %w", err)
	}
	if raw.NumberOfSwaps == nil {
		return SwapPlan{}, fmt.Errorf("swap config: numberOfSwaps is required")
	}
	if *raw.NumberOfSwaps < 0 {
		return SwapPlan{}, fmt.Errorf("swap config: numberOfSwaps must be >= 0, got %d", *raw.NumberOfSwaps)
	}
	plan := SwapPlan{
		NumberOfSwaps: *raw.NumberOfSwaps,
		AmountWei:     new(big.Int).Set(defaultAmount),
		Sequential:    raw.SequentialSwap,
	}
	if s := strings.TrimSpace(raw.AmountPerSwap); s != "" {
		amount, err := ParseEtherAmount(s)
		if err != nil {
			return SwapPlan{}, fmt.Errorf("swap config: amountPerSwap: %w", err)
		}
		plan.AmountWei = amount
	}
	return plan, nil
}

// LoadKeys reads a newline-separated private key list. Blank lines and
// #-comments are skipped.
func LoadKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("key file %s: no keys found", path)
	}
	return keys, nil
}

// ParseEtherAmount converts a decimal ETH string ("0.00002") to wei.
func ParseEtherAmount(s string) (*big.Int, error) {
	f, ok := new(big.Float).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid number format: %q", s)
	}
	if f.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", s)
	}
	wei, _ := new(big.Float).Mul(f, big.NewFloat(params.Ether)).Int(nil)
	return wei, nil
}

// MustParseEther is ParseEtherAmount for values known to be valid.
func MustParseEther(s string) *big.Int {
	wei, err := ParseEtherAmount(s)
	if err != nil {
		panic(err)
	}
	return wei
}

// ParseGweiAmount converts a decimal gwei string to wei.
func ParseGweiAmount(s string) (*big.Int, error) {
	f, ok := new(big.Float).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid number format: %q", s)
	}
	if f.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", s)
	}
	wei, _ := new(big.Float).Mul(f, big.NewFloat(params.GWei)).Int(nil)
	return wei, nil
}
