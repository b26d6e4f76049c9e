package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Random Strategy v%s
A buy and a sell of random size at every price of a sweep
`
)

func main() {
	cfg := strategy.DefaultSweepConfig()
	flag.Float64Var(&cfg.From, "from", cfg.From, "first price")
	flag.Float64Var(&cfg.To, "to", cfg.To, "last price")
	flag.Float64Var(&cfg.Step, "step", cfg.Step, "price step")
	flag.Float64Var(&cfg.AmountUnit, "unit", cfg.AmountUnit, "base amount per random step")
	depositBase := flag.Float64("deposit-base", 10, "base deposited before trading")
	depositQuote := flag.Float64("deposit-quote", 100000, "quote deposited before trading")
	seed := flag.Int64("seed", 0, "random seed, 0 uses the clock")
	pause := flag.Duration("pause", 0, "wait between orders")
	flag.Parse()

	logger := logging.Must("random-strategy")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))
	quotes := strategy.RandomSweep(rng, cfg, s.Scale)
	logger.Info("generated orders", zap.Int("count", len(quotes)), zap.Int64("seed", *seed))

	depositCtx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	_, err = s.Funder().Deposit(depositCtx, market.Balance{
		Base:  s.Scale.Base(*depositBase),
		Quote: s.Scale.Quote(*depositQuote),
	})
	cancel()
	if err != nil {
		logger.Fatal("deposit failed", zap.Error(err))
	}

	placed, err := strategy.PlaceEach(ctx, s.Market, quotes, s.Scale, *pause, logger)
	if err != nil {
		logger.Fatal("stopped", zap.Error(err))
	}
	logger.Info("done", zap.Int("opened", len(placed.IDs)), zap.Int("failed", placed.Failed))

	readCtx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()
	if _, err := s.LogAccount(readCtx, "account"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
}
