package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
)

const (
	version = "0.1.0"
	banner  = `
Spark Batch Match v%s
Open N crossing buy/sell pairs and match them pair by pair
`
)

func main() {
	pairs := flag.Int("n", 10, "number of buy/sell pairs")
	amount := flag.Float64("amount", 0.1, "base amount per order")
	price := flag.Float64("price", 70000, "price of every order")
	depositBase := flag.Float64("deposit-base", 1, "base to deposit")
	depositQuote := flag.Float64("deposit-quote", 70000, "quote to deposit")
	flag.Parse()

	logger := logging.Must("batch-match-orders")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	logger.Info("depositing")
	deposit := market.Balance{Base: s.Scale.Base(*depositBase), Quote: s.Scale.Quote(*depositQuote)}
	if _, err := s.Funder().Deposit(ctx, deposit); err != nil {
		logger.Fatal("deposit failed", zap.Error(err))
	}
	logger.Info("deposit successful")

	size := s.Scale.Base(*amount)
	limit := s.Scale.Price(*price)

	open := func(side market.OrderType) []market.OrderID {
		ids := make([]market.OrderID, 0, *pairs)
		for i := 0; i < *pairs; i++ {
			logger.Info("opening order",
				zap.Stringer("side", side),
				zap.String("amount", s.Scale.FormatBase(size)),
				zap.String("price", s.Scale.FormatPrice(limit)))
			id, _, err := s.Market.OpenOrder(ctx, size, side, limit, nil)
			if err != nil {
				logger.Fatal("open order failed", zap.Error(err))
			}
			ids = append(ids, id)
		}
		return ids
	}
	buys := open(market.Buy)
	sells := open(market.Sell)

	for i := range buys {
		logger.Info("matching orders", zap.String("buy", buys[i].Short()), zap.String("sell", sells[i].Short()))
		if _, err := s.Market.MatchOrderPair(ctx, buys[i], sells[i]); err != nil {
			logger.Fatal("match failed", zap.Error(err))
		}
		logger.Info("orders matched successfully")
	}

	if _, err := s.LogAccount(ctx, "account after matching orders"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
}
