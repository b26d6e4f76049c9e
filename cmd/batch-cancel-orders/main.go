package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Batch Cancel v%s
Cancel every open order of the wallet, 50 per transaction
`
)

func main() {
	size := flag.Int("batch", 50, "cancellations per transaction")
	flag.Parse()

	logger := logging.Must("batch-cancel-orders")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	ids, err := s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("initial number of orders", zap.Int("count", len(ids)))

	if len(ids) == 0 {
		logger.Info("no orders to cancel")
		return
	}

	calls, err := strategy.CancelCalls(s.Market, ids)
	if err != nil {
		logger.Fatal("failed to build cancels", zap.Error(err))
	}

	for i, chunk := range batch.Chunk(calls, *size) {
		logger.Info("cancelling batch", zap.Int("batch", i+1), zap.Int("orders", len(chunk)))

		txCtx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
		res, err := s.Market.Batch().AddAll(chunk...).Submit(txCtx)
		cancel()
		if err != nil {
			logger.Fatal("batch failed", zap.Int("batch", i+1), zap.Error(err))
		}
		logger.Info("batch cancelled", zap.Int("batch", i+1), zap.Stringer("tx", res.TxHash))
	}

	ids, err = s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("final number of orders", zap.Int("count", len(ids)))
}
