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
)

const (
	version = "0.1.0"
	banner  = `
Spark Match Orders v%s
Deposit, open a crossing buy and sell, then match the pair
`
)

func main() {
	logger := logging.Must("match-orders")
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

	if _, err := s.LogAccount(ctx, "balances"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}

	size := s.Scale.Base(config.Float("ORDER_AMOUNT", 0.1))
	price := s.Scale.Price(config.Float("ORDER_PRICE", 70000))

	deposit := market.Balance{Base: size, Quote: s.Scale.Cost(size, price)}
	logger.Info("depositing",
		zap.String(s.BaseSymbol, s.Scale.FormatBase(deposit.Base)),
		zap.String(s.QuoteSymbol, s.Scale.FormatQuote(deposit.Quote)))
	if _, err := s.Funder().Deposit(ctx, deposit); err != nil {
		logger.Fatal("deposit failed", zap.Error(err))
	}
	logger.Info("deposit success")

	buy, _, err := s.Market.OpenOrder(ctx, size, market.Buy, price, nil)
	if err != nil {
		logger.Fatal("open buy failed", zap.Error(err))
	}
	logger.Info("buy opened", zap.String("id", buy.Hex()))

	sell, _, err := s.Market.OpenOrder(ctx, size, market.Sell, price, nil)
	if err != nil {
		logger.Fatal("open sell failed", zap.Error(err))
	}
	logger.Info("sell opened", zap.String("id", sell.Hex()))

	logger.Info("matching orders", zap.String("buy", buy.Short()), zap.String("sell", sell.Short()))
	if _, err := s.Market.MatchOrderPair(ctx, buy, sell); err != nil {
		logger.Fatal("match failed", zap.Error(err))
	}
	logger.Info("orders matched successfully")

	if _, err := s.LogAccount(ctx, "balances after match"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
}
