package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Fulfill Many v%s
Seed a sell ladder, then sweep it with one IOC buy
`
)

func main() {
	sells := flag.Int("sells", 5, "sell orders to seed")
	sellAmount := flag.Float64("sell-amount", 0.001, "base per sell order")
	sellStart := flag.Float64("sell-start", 50500, "lowest sell price")
	step := flag.Float64("step", 100, "sell ladder step")
	buyAmount := flag.Float64("buy-amount", 0.005, "base bought by the taker order")
	buyPrice := flag.Float64("buy-price", 50500, "taker limit price")
	slippage := flag.Int64("slippage", 10, "allowed slippage in percent")
	depositBase := flag.Float64("deposit-base", 0.01, "base to deposit")
	depositQuote := flag.Float64("deposit-quote", 3000, "quote to deposit")
	flag.Parse()

	logger := logging.Must("fulfill-order-many")
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

	tiers, err := s.Market.ProtocolFee(ctx)
	if err != nil {
		logger.Fatal("failed to read protocol fee", zap.Error(err))
	}
	for _, t := range tiers {
		logger.Info("protocol fee",
			zap.Stringer("maker", t.MakerFee),
			zap.Stringer("taker", t.TakerFee),
			zap.Stringer("volume_threshold", t.VolumeThreshold))
	}

	prices := strategy.Ladder(s.Scale.Price(*sellStart), s.Scale.Price(*step), *sells, strategy.Up)
	quotes := strategy.LadderQuotes(market.Sell, s.Scale.Base(*sellAmount), prices)

	deposit := market.Balance{Base: s.Scale.Base(*depositBase), Quote: s.Scale.Quote(*depositQuote)}
	calls, err := s.Funder().DepositCalls(ctx, deposit)
	if err != nil {
		logger.Fatal("failed to prepare deposit", zap.Error(err))
	}
	orderCalls, err := strategy.OrderCalls(s.Market, quotes, nil)
	if err != nil {
		logger.Fatal("failed to build orders", zap.Error(err))
	}
	calls = append(calls, orderCalls...)

	if _, err := s.Market.Batch().AddAll(calls...).Submit(ctx); err != nil {
		logger.Fatal("multicall failed", zap.Error(err))
	}

	ids, err := s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("number of orders", zap.Int("count", len(ids)))
	if _, err := s.LogAccount(ctx, "account before fulfill"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}

	req := market.FulfillRequest{
		Amount:    s.Scale.Base(*buyAmount),
		OrderType: market.Buy,
		LimitType: market.IOC,
		Price:     s.Scale.Price(*buyPrice),
		Slippage:  big.NewInt(*slippage),
		Orders:    ids,
	}
	id, out, err := s.Market.FulfillMany(ctx, req)
	if err != nil {
		logger.Fatal("fulfill failed", zap.Error(err))
	}
	logger.Info("fulfilled", zap.String("order", id.Hex()), zap.Stringer("tx", out.TxHash()))

	ids, err = s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("number of orders", zap.Int("count", len(ids)))
	if _, err := s.LogAccount(ctx, "account after fulfill"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
}
