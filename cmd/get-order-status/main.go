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
Spark Get Order Status v%s
Current state and change history of an order
usage: get-order-status <order-id>
`
)

func main() {
	logger := logging.Must("get-order-status")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	if len(os.Args) != 2 {
		logger.Fatal("expected exactly one order id")
	}
	id, err := market.ParseOrderID(os.Args[1])
	if err != nil {
		logger.Fatal("invalid order id", zap.Error(err))
	}

	ctx := context.Background()
	s, err := session.Open(ctx, session.ReadOnly, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	order, ok, err := s.Market.Order(ctx, id)
	if err != nil {
		logger.Fatal("order", zap.Error(err))
	}
	if ok {
		s.LogOrder("open order", order)
	} else {
		logger.Info("order is not open", zap.String("id", id.Hex()))
	}

	changes, err := s.Market.OrderChangeInfo(ctx, id)
	if err != nil {
		logger.Fatal("order history", zap.Error(err))
	}
	for _, c := range changes {
		logger.Info("change",
			zap.Stringer("type", c.ChangeType),
			zap.Uint64("block", c.BlockHeight),
			zap.String("sender", c.Sender.Hex()),
			zap.String("tx", c.TxID.Hex()),
			zap.String("amount_before", s.Scale.FormatBase(c.AmountBefore)),
			zap.String("amount_after", s.Scale.FormatBase(c.AmountAfter)))
	}
	if len(changes) == 0 {
		logger.Info("no history recorded")
	}
}
