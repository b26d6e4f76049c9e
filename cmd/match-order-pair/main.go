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
Spark Match Pair v%s
Match one buy order against one sell order by id
Usage: match-order-pair -buy 0x... -sell 0x...
`
)

func main() {
	buyHex := flag.String("buy", "", "buy order id")
	sellHex := flag.String("sell", "", "sell order id")
	flag.Parse()

	logger := logging.Must("match-order-pair")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	buy, err := market.ParseOrderID(*buyHex)
	if err != nil {
		logger.Fatal("invalid buy order id", zap.Error(err))
	}
	sell, err := market.ParseOrderID(*sellHex)
	if err != nil {
		logger.Fatal("invalid sell order id", zap.Error(err))
	}

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	logger.Info("matching orders", zap.String("buy", buy.Hex()), zap.String("sell", sell.Hex()))
	out, err := s.Market.MatchOrderPair(ctx, buy, sell)
	if err != nil {
		logger.Fatal("match failed", zap.Error(err))
	}
	logger.Info("orders matched successfully", zap.Stringer("tx", out.TxHash()))
}
