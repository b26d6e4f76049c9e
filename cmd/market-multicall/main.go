package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/erc20"
	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Market Multicall v%s
Empty the PAIR market in one transaction and fund another market with quote
`
)

func main() {
	to := flag.String("to", "ETH_USDC", "pair whose market is funded")
	amount := flag.Float64("deposit", 3000, "quote deposited into the target market")
	flag.Parse()

	logger := logging.Must("market-multicall")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	target, err := s.MarketFor(*to)
	if err != nil {
		logger.Fatal("target market", zap.Error(err))
	}
	targetInfo, err := target.Config(ctx)
	if err != nil {
		logger.Fatal("target market config", zap.Error(err))
	}
	targetScale := strategy.ScaleOf(targetInfo)

	if _, err := s.LogAccount(ctx, s.Config.Pair+" account before"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
	if acc, err := target.Account(ctx, s.User()); err == nil {
		logger.Info(*to+" account before", zap.Stringer("account", acc))
	}

	calls, total, err := strategy.DrainCalls(ctx, s.Market, s.User(), nil)
	if err != nil {
		logger.Fatal("failed to prepare withdrawal", zap.Error(err))
	}
	logger.Info("withdrawing everything",
		zap.Int("calls", len(calls)),
		zap.String(s.BaseSymbol, s.Scale.FormatBase(total.Base)),
		zap.String(s.QuoteSymbol, s.Scale.FormatQuote(total.Quote)))

	if len(calls) > 0 {
		res, err := s.Market.Batch().AddAll(calls...).Submit(ctx)
		logger.Info("is ok", zap.Bool("ok", err == nil))
		if err != nil {
			logger.Fatal("multicall failed", zap.Error(err))
		}
		logger.Info("multicall submitted", zap.Stringer("tx", res.TxHash))
	}

	quote := erc20.New(targetInfo.QuoteAsset, s.Backend, s.Tx)
	funder := strategy.NewFunder(target, nil, quote, targetScale, logger)
	if _, err := funder.Deposit(ctx, market.Balance{Quote: targetScale.Quote(*amount)}); err != nil {
		logger.Fatal("deposit failed", zap.Error(err))
	}

	if _, err := s.LogAccount(ctx, s.Config.Pair+" account after"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
	if acc, err := target.Account(ctx, s.User()); err == nil {
		logger.Info(*to+" account after", zap.Stringer("account", acc))
	}
}
