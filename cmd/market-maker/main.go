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
Spark Market Maker v%s
Keeps a band of buy and sell orders around the spot price
`
)

func main() {
	mmFlags := strategy.DefaultMarketMakerConfig("")
	flag.Float64Var(&mmFlags.Band.Band, "band", mmFlags.Band.Band, "band half width as a fraction of the price")
	flag.IntVar(&mmFlags.Band.Levels, "levels", mmFlags.Band.Levels, "price levels per side")
	flag.Float64Var(&mmFlags.Band.Spread, "spread", mmFlags.Band.Spread, "spread split between buys and sells")
	flag.Float64Var(&mmFlags.Band.BudgetUSD, "budget", mmFlags.Band.BudgetUSD, "total USD value of the band")
	flag.IntVar(&mmFlags.Iterations, "iterations", 0, "iterations to run, 0 runs until interrupted")
	flag.DurationVar(&mmFlags.Interval, "interval", mmFlags.Interval, "wait between iterations")
	flag.DurationVar(&mmFlags.OrderPause, "order-pause", mmFlags.OrderPause, "wait between orders")
	flag.DurationVar(&mmFlags.CancelPause, "cancel-pause", mmFlags.CancelPause, "wait between cancels")
	noStream := flag.Bool("no-stream", false, "use only the REST price source")
	flag.Parse()

	logger := logging.Must("market-maker")
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

	cfg := mmFlags
	cfg.Asset = s.BaseSymbol

	rest, err := pricefeed.New(s.Config.PriceSource)
	if err != nil {
		logger.Fatal("price source", zap.Error(err))
	}
	var prices strategy.PriceSource = rest
	if !*noStream {
		stream := pricefeed.NewStream(logger)
		if err := stream.Subscribe(cfg.Asset); err != nil {
			logger.Fatal("subscribe", zap.Error(err))
		}
		go func() {
			if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("price stream stopped", zap.Error(err))
			}
		}()
		defer stream.Close()
		prices = pricefeed.NewFallback(logger, stream, rest)
	}

	bot, err := s.Telegram()
	if err != nil {
		logger.Fatal("failed to create telegram bot", zap.Error(err))
	}

	mm, err := strategy.NewMarketMaker(s.Market, s.Funder(), prices, s.Scale, cfg, bot, logger)
	if err != nil {
		logger.Fatal("failed to create market maker", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating shutdown", zap.Stringer("signal", sig))
		cancel()
	}()

	if err := bot.NotifyStarted("market-maker"); err != nil {
		logger.Warn("failed to send startup notification", zap.Error(err))
	}

	fmt.Println(strings.Repeat("-", 60))
	runErr := mm.Run(ctx)
	if failed(runErr) {
		logger.Error("strategy error", zap.Error(runErr))
	}

	logger.Info("shutting down")
	if err := bot.NotifyStopped("market-maker"); err != nil {
		logger.Warn("failed to send shutdown notification", zap.Error(err))
	}
	logger.Info("shutdown complete")

	if failed(runErr) {
		cancel()
		_ = logger.Sync()
		os.Exit(1)
	}
}

// failed reports whether the strategy stopped for a reason other than shutdown.
func failed(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
