package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
)

const (
	version = "0.1.0"
	banner  = `
Spark Match Many v%s
Match a set of orders against each other in one call
Usage: match-many <order id> <order id> [order id...]
`
)

func main() {
	logger := logging.Must("match-many")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	args := os.Args[1:]
	if len(args) < 2 {
		logger.Fatal("need at least two order ids")
	}
	ids := make([]market.OrderID, len(args))
	for i, arg := range args {
		id, err := market.ParseOrderID(arg)
		if err != nil {
			logger.Fatal("invalid order id", zap.String("arg", arg), zap.Error(err))
		}
		ids[i] = id
	}

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

	logger.Info("trying to match")
	for _, id := range ids {
		logger.Info("order", zap.String("id", id.Hex()))
	}

	out, err := s.Market.MatchOrderMany(ctx, ids)
	fmt.Println(strings.Repeat("-", 60))
	if err != nil {
		logger.Error("match failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("matched", zap.Stringer("tx", out.TxHash()))
}
