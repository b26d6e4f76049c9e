package main

import (
	"context"
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
Spark Withdraw Multicall v%s
Withdraw both liquid balances in a single transaction
`
)

func main() {
	logger := logging.Must("withdraw-multicall")
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

	acc, err := s.LogAccount(ctx, "account before")
	if err != nil {
		logger.Fatal("account", zap.Error(err))
	}

	b := s.Market.Batch()
	if acc.Liquid.Base.Sign() > 0 {
		call, err := s.Market.WithdrawCall(acc.Liquid.Base, market.Base)
		if err != nil {
			logger.Fatal("failed to build withdraw", zap.Error(err))
		}
		b.Add(call)
	}
	if acc.Liquid.Quote.Sign() > 0 {
		call, err := s.Market.WithdrawCall(acc.Liquid.Quote, market.Quote)
		if err != nil {
			logger.Fatal("failed to build withdraw", zap.Error(err))
		}
		b.Add(call)
	}
	if b.Len() == 0 {
		logger.Info("nothing to withdraw")
		return
	}

	res, err := b.Submit(ctx)
	if err != nil {
		logger.Fatal("multicall failed", zap.Error(err))
	}
	logger.Info("multicall transaction", zap.Stringer("tx", res.TxHash))

	if _, err := s.LogAccount(ctx, "account after"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
}
