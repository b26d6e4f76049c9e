package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
)

const (
	version = "0.1.0"
	banner  = `
Spark Get Order Info v%s
Look up an order by id and among a user's open orders
`
)

func main() {
	userFlag := flag.String("user", "", "order owner to list (required)")
	idFlag := flag.String("id", "", "order id, defaults to the user's first order")
	flag.Parse()

	logger := logging.Must("get-order-info")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	if !common.IsHexAddress(*userFlag) {
		logger.Fatal("-user must be an address", zap.String("user", *userFlag))
	}
	user := common.HexToAddress(*userFlag)

	ctx := context.Background()
	s, err := session.Open(ctx, session.ReadOnly, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	ids, err := s.Market.UserOrders(ctx, user)
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("user orders", zap.Int("count", len(ids)))

	var id market.OrderID
	switch {
	case *idFlag != "":
		if id, err = market.ParseOrderID(*idFlag); err != nil {
			logger.Fatal("invalid -id", zap.Error(err))
		}
	case len(ids) > 0:
		id = ids[0]
	default:
		logger.Info("user has no open orders and no -id was given")
		return
	}

	order, err := s.Market.MustOrder(ctx, id)
	if err != nil {
		logger.Fatal("order", zap.Error(err))
	}
	s.LogOrder("order", order)

	listed := false
	for _, other := range ids {
		if other == id {
			listed = true
			break
		}
	}
	logger.Info("comparison",
		zap.Bool("listed_for_user", listed),
		zap.Bool("owned_by_user", order.Owner == user))
}
