package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Fill Orderbook v%s
Top up the market account and seed static sell and buy ladders
`
)

func main() {
	def := strategy.DefaultFillConfig()
	cfg := def
	flag.Float64Var(&cfg.SellStart, "sell-start", def.SellStart, "first sell price")
	flag.Float64Var(&cfg.SellStep, "sell-step", def.SellStep, "sell ladder step")
	flag.IntVar(&cfg.Sells, "sells", def.Sells, "number of sell orders")
	flag.Float64Var(&cfg.SellAmount, "sell-amount", def.SellAmount, "base per sell order")
	flag.Float64Var(&cfg.BuyStart, "buy-start", def.BuyStart, "first buy price")
	flag.Float64Var(&cfg.BuyStep, "buy-step", def.BuyStep, "buy ladder step")
	flag.IntVar(&cfg.Buys, "buys", def.Buys, "number of buy orders")
	flag.Float64Var(&cfg.BuyQuote, "buy-quote", def.BuyQuote, "quote spent per buy order")
	flag.BoolVar(&cfg.Percent, "percent", false, "steps are fractions of the price")
	flag.Parse()

	logger := logging.Must("fill-orderbook")
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

	sells, buys := strategy.FillQuotes(cfg, s.Scale)
	need := s.Scale.Required(append(append([]strategy.Quote{}, sells...), buys...))

	deposited, err := s.Funder().TopUp(ctx, need)
	if err != nil {
		logger.Fatal("deposit failed", zap.Error(err))
	}
	logger.Info("balance covered",
		zap.String("deposited_"+strings.ToLower(s.BaseSymbol), s.Scale.FormatBase(deposited.Base)),
		zap.String("deposited_"+strings.ToLower(s.QuoteSymbol), s.Scale.FormatQuote(deposited.Quote)))

	for _, side := range []struct {
		name   string
		quotes []strategy.Quote
	}{{"sell", sells}, {"buy", buys}} {
		if len(side.quotes) == 0 {
			continue
		}
		for _, q := range side.quotes {
			logger.Info("added order to multicall",
				zap.Stringer("side", q.Side),
				zap.String("amount", s.Scale.FormatBase(q.Amount)),
				zap.String("price", s.Scale.FormatPrice(q.Price)))
		}
		calls, err := strategy.OrderCalls(s.Market, side.quotes, nil)
		if err != nil {
			logger.Fatal("failed to build orders", zap.Error(err))
		}
		res, err := s.Market.Batch().AddAll(calls...).Submit(ctx)
		if err != nil {
			logger.Fatal("multicall failed", zap.String("side", side.name), zap.Error(err))
		}
		logger.Info("orders created", zap.String("side", side.name), zap.Int("count", len(calls)), zap.Stringer("tx", res.TxHash))
	}
}
