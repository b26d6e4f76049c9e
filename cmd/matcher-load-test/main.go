package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/pricefeed"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Matcher Load Test v%s
Floods the market with batched orders around the spot price
`
)

func main() {
	ltFlags := strategy.DefaultLoadTestConfig("")
	shape := flag.String("shape", string(ltFlags.Shape), "order layout: normal or alternating")
	flag.Float64Var(&ltFlags.Grid.Range, "range", ltFlags.Grid.Range, "normal grid spans price ± range")
	flag.Float64Var(&ltFlags.Grid.Step, "step", ltFlags.Grid.Step, "normal grid step")
	flag.Float64Var(&ltFlags.Grid.TotalBase, "total-base", ltFlags.Grid.TotalBase, "base spread over the sells")
	flag.Float64Var(&ltFlags.Grid.TotalQuote, "total-quote", ltFlags.Grid.TotalQuote, "quote spread over the buys")
	flag.IntVar(&ltFlags.Orders, "orders", ltFlags.Orders, "alternating order count")
	flag.Float64Var(&ltFlags.OrderSizeUSD, "order-usd", ltFlags.OrderSizeUSD, "alternating order size in USD")
	flag.Float64Var(&ltFlags.DepositBase, "deposit-base", ltFlags.DepositBase, "base deposited per iteration")
	flag.Float64Var(&ltFlags.DepositQuote, "deposit-quote", ltFlags.DepositQuote, "quote deposited per iteration")
	flag.IntVar(&ltFlags.BatchSize, "batch", ltFlags.BatchSize, "orders per multicall")
	flag.DurationVar(&ltFlags.BatchPause, "batch-pause", ltFlags.BatchPause, "wait between multicalls")
	flag.DurationVar(&ltFlags.Interval, "interval", ltFlags.Interval, "wait between iterations")
	flag.IntVar(&ltFlags.Iterations, "iterations", 0, "iterations to run, 0 runs until interrupted")
	flag.Parse()

	logger := logging.Must("matcher-load-test")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	cfg := ltFlags
	cfg.Asset = s.BaseSymbol
	cfg.Shape = strategy.Shape(strings.ToLower(*shape))

	prices, err := pricefeed.New(s.Config.PriceSource)
	if err != nil {
		logger.Fatal("price source", zap.Error(err))
	}

	bot, err := s.Telegram()
	if err != nil {
		logger.Fatal("failed to create telegram bot", zap.Error(err))
	}

	lt, err := strategy.NewLoadTest(s.Market, s.Funder(), prices, s.Scale, cfg, bot, logger)
	if err != nil {
		logger.Fatal("failed to create load test", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating shutdown", zap.Stringer("signal", sig))
		cancel()
	}()

	if err := bot.NotifyStarted("matcher-load-test"); err != nil {
		logger.Warn("failed to send startup notification", zap.Error(err))
	}

	reports, runErr := lt.Run(ctx)
	if failed(runErr) {
		logger.Error("load test error", zap.Error(runErr))
	}

	batches := 0
	for _, r := range reports {
		batches += len(r.Batches)
	}
	logger.Info("load test finished", zap.Int("iterations", len(reports)), zap.Int("multicalls", batches))

	if err := bot.NotifyStopped("matcher-load-test"); err != nil {
		logger.Warn("failed to send shutdown notification", zap.Error(err))
	}

	if failed(runErr) {
		cancel()
		_ = logger.Sync()
		os.Exit(1)
	}
}

// failed reports whether the load test stopped for a reason other than shutdown.
func failed(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
