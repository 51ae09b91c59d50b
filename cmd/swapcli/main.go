package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swap-cycler/internal/config"
	"swap-cycler/internal/swapcore"
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		cfg.Encoding = "console"
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

func main() {
	_ = godotenv.Load()

	var configPath, keysPath string
	flag.StringVar(&configPath, "config", getenv("SWAP_CONFIG", "swap_config.json"), "Path to swap config JSON")
	flag.StringVar(&keysPath, "keys", getenv("KEYS_FILE", "keys.txt"), "Path to newline-separated private key list")
	flag.Parse()

	log := newLogger()
	defer func() { _ = log.Sync() }()

	settings, err := config.Load()
	if err != nil {
		log.Fatalw("load settings", "error", err.Error())
	}
	plan, err := config.LoadSwapPlan(configPath, settings.DefaultAmountWei)
	if err != nil {
		log.Fatalw("load swap config", "path", configPath, "error", err.Error())
	}
	keys, err := config.LoadKeys(keysPath)
	if err != nil {
		log.Fatalw("load keys", "path", keysPath, "error", err.Error())
	}

	ec, err := swapcore.Dial(settings.RPCURL)
	if err != nil {
		log.Fatalw("dial rpc", "url", settings.RPCURL, "error", err.Error())
	}
	defer ec.Close()

	ctx := context.Background()
	chainID, err := ec.ChainID(ctx)
	if err != nil {
		log.Fatalw("chain id query", "error", err.Error())
	}
	if chainID.Cmp(settings.ChainID) != 0 {
		log.Fatalw("chain id mismatch", "configured", settings.ChainID.String(), "reported", chainID.String())
	}

	clock := swapcore.SystemClock()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pricer := swapcore.NewGasPricer(ec, settings.PriorityFeeWei, settings.FallbackGasWei, settings.BaseFeeMul, log)
	estimator := swapcore.NewGasEstimator(ec, settings.FallbackGasLimit, log)
	guard := swapcore.NewBalanceGuard(ec, log)
	seq := swapcore.NewSequencer(ec, pricer, estimator, guard, clock, &settings, log)
	runner := swapcore.NewRunner(seq, &settings, clock, rng, log)
	orch := swapcore.NewOrchestrator(runner, log)

	log.Infow("starting batch",
		"wallets", len(keys),
		"swapsPerWallet", plan.NumberOfSwaps,
		"sequential", plan.Sequential,
		"amountWei", plan.AmountWei.String(),
		"chainID", settings.ChainID.String(),
	)

	report, err := orch.Run(ctx, keys, plan)
	if err != nil {
		log.Fatalw("batch aborted", "error", err.Error())
	}

	for _, s := range report.Sessions {
		log.Infow("wallet summary",
			"wallet", s.Wallet.Hex(),
			"successes", s.Successes,
			"failures", s.Failures,
		)
	}
	log.Infow("batch summary",
		"totalSuccesses", report.TotalSuccesses,
		"totalFailures", report.TotalFailures,
		"successRate", fmt.Sprintf("%.1f%%", report.SuccessRate()),
	)
}
