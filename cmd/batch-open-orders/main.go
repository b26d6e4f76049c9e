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
Spark Batch Open Orders v%s
Deposit and open a buy ladder and a sell ladder in a single transaction
`
)

func main() {
	levels := flag.Int("levels", 5, "orders per side")
	buyStart := flag.Float64("buy-start", 55000, "lowest buy price")
	sellStart := flag.Float64("sell-start", 65000, "lowest sell price")
	step := flag.Float64("step", 500, "price step between levels")
	buyQuote := flag.Float64("buy-quote", 1000, "quote spent by each buy")
	sellAmount := flag.Float64("sell-amount", 0.02, "base sold by each sell")
	depositBase := flag.Float64("deposit-base", 1, "base to deposit")
	depositQuote := flag.Float64("deposit-quote", 10000, "quote to deposit")
	flag.Parse()

	logger := logging.Must("batch-open-orders")
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

	fee, err := s.Market.MatcherFee(ctx)
	if err != nil {
		logger.Fatal("failed to read matcher fee", zap.Error(err))
	}
	tiers, err := s.Market.ProtocolFee(ctx)
	if err != nil {
		logger.Fatal("failed to read protocol fee", zap.Error(err))
	}
	logger.Info("fees", zap.Stringer("matcher_fee", fee), zap.Int("protocol_tiers", len(tiers)))

	stepPrice := s.Scale.Price(*step)
	var quotes []strategy.Quote
	buys := strategy.Ladder(s.Scale.Price(*buyStart), stepPrice, *levels, strategy.Up)
	sells := strategy.Ladder(s.Scale.Price(*sellStart), stepPrice, *levels, strategy.Up)
	for i := range buys {
		amount := s.Scale.Base(*buyQuote / s.Scale.ReadablePrice(buys[i]))
		quotes = append(quotes, strategy.Quote{Side: market.Buy, Amount: amount, Price: buys[i]})
		if i < len(sells) {
			quotes = append(quotes, strategy.Quote{Side: market.Sell, Amount: s.Scale.Base(*sellAmount), Price: sells[i]})
		}
	}

	need := s.Scale.Required(quotes)
	logger.Info("orders prepared",
		zap.Int("orders", len(quotes)),
		zap.String("needs_"+strings.ToLower(s.BaseSymbol), s.Scale.FormatBase(need.Base)),
		zap.String("needs_"+strings.ToLower(s.QuoteSymbol), s.Scale.FormatQuote(need.Quote)))

	deposit := market.Balance{Base: s.Scale.Base(*depositBase), Quote: s.Scale.Quote(*depositQuote)}
	calls, err := s.Funder().DepositCalls(ctx, deposit)
	if err != nil {
		logger.Fatal("failed to prepare deposit", zap.Error(err))
	}

	var orderFee *big.Int
	if fee.Sign() > 0 {
		orderFee = fee
	}
	orderCalls, err := strategy.OrderCalls(s.Market, quotes, orderFee)
	if err != nil {
		logger.Fatal("failed to build orders", zap.Error(err))
	}
	calls = append(calls, orderCalls...)

	res, err := s.Market.Batch().AddAll(calls...).Submit(ctx)
	if err != nil {
		logger.Fatal("multicall failed", zap.Error(err))
	}
	logger.Info("multicall submitted", zap.Int("calls", len(calls)), zap.Stringer("tx", res.TxHash))

	ids, err := s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("number of orders", zap.Int("count", len(ids)))
}
