package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/config"
	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Simple Multicall v%s
Deposit and open a buy and a sell order in one transaction
`
)

func main() {
	logger := logging.Must("simple-multicall")
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

	deposit := market.Balance{
		Base:  s.Scale.Base(config.Float("DEPOSIT_BASE", 1)),
		Quote: s.Scale.Quote(config.Float("DEPOSIT_QUOTE", 10000)),
	}
	size := s.Scale.Base(config.Float("ORDER_AMOUNT", 0.01))
	quotes := []strategy.Quote{
		{Side: market.Buy, Amount: size, Price: s.Scale.Price(config.Float("BUY_PRICE", 55000))},
		{Side: market.Sell, Amount: size, Price: s.Scale.Price(config.Float("SELL_PRICE", 65000))},
	}

	calls, err := s.Funder().DepositCalls(ctx, deposit)
	if err != nil {
		logger.Fatal("failed to prepare deposit", zap.Error(err))
	}
	orderCalls, err := strategy.OrderCalls(s.Market, quotes, nil)
	if err != nil {
		logger.Fatal("failed to build orders", zap.Error(err))
	}
	calls = append(calls, orderCalls...)

	res, err := s.Market.Batch().AddAll(calls...).Submit(ctx)
	if err != nil {
		logger.Fatal("multicall failed", zap.Error(err))
	}
	logger.Info("multicall submitted",
		zap.Int("calls", len(calls)),
		zap.Stringer("tx", res.TxHash),
		zap.Bool("dry_run", res.DryRun))

	ids, err := market.DecodeOrderIDs(calls, res.Returns)
	if err != nil {
		logger.Fatal("failed to decode results", zap.Error(err))
	}
	for _, id := range ids {
		logger.Info("order opened", zap.String("id", id.Hex()))
	}

	orders, err := s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("number of orders", zap.Int("count", len(orders)))
}
