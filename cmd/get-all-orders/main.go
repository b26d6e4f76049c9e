package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/session"
)

const (
	version = "0.1.0"
	banner  = `
Spark Get All Orders v%s
Open orders and balances of a user in the PAIR market
`
)

func main() {
	userFlag := flag.String("user", "", "address to inspect (default: the configured wallet)")
	verbose := flag.Bool("v", false, "print every order")
	flag.Parse()

	logger := logging.Must("get-all-orders")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	mode := session.Signing
	if *userFlag != "" {
		if !common.IsHexAddress(*userFlag) {
			logger.Fatal("invalid -user address", zap.String("user", *userFlag))
		}
		mode = session.ReadOnly
	}

	ctx := context.Background()
	s, err := session.Open(ctx, mode, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	user := s.User()
	if *userFlag != "" {
		user = common.HexToAddress(*userFlag)
	}

	ids, err := s.Market.UserOrders(ctx, user)
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("user orders", zap.String("user", user.Hex()), zap.Int("count", len(ids)))

	if *verbose {
		for _, id := range ids {
			o, ok, err := s.Market.Order(ctx, id)
			if err != nil {
				logger.Fatal("order", zap.String("id", id.Hex()), zap.Error(err))
			}
			if ok {
				s.LogOrder("order", o)
			}
		}
	}

	acc, err := s.Market.Account(ctx, user)
	if err != nil {
		logger.Fatal("account", zap.Error(err))
	}
	logger.Info("account",
		zap.String("liquid_base", s.Scale.FormatBase(acc.Liquid.Base)),
		zap.String("liquid_quote", s.Scale.FormatQuote(acc.Liquid.Quote)),
		zap.String("locked_base", s.Scale.FormatBase(acc.Locked.Base)),
		zap.String("locked_quote", s.Scale.FormatQuote(acc.Locked.Quote)))
}
