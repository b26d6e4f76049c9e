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
	"github.com/dantezy/spark-market-scripts/internal/units"
)

const (
	version = "0.1.0"
	banner  = `
Spark Balance Checker v%s
Wallet balances, allowances and market account for PAIR
`
)

func main() {
	userFlag := flag.String("user", "", "address to inspect (default: the configured wallet)")
	flag.Parse()

	logger := logging.Must("balance")
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
	logger.Info("wallet", zap.String("address", user.Hex()))

	native, err := s.Backend.BalanceAt(ctx, user, nil)
	if err != nil {
		logger.Error("native balance", zap.Error(err))
	} else {
		logger.Info("native balance", zap.String("eth", units.Format(native, 18)))
	}

	fmt.Println(strings.Repeat("-", 60))

	base, err := s.Base.BalanceOf(ctx, user)
	if err != nil {
		logger.Fatal("base balance", zap.Error(err))
	}
	quote, err := s.Quote.BalanceOf(ctx, user)
	if err != nil {
		logger.Fatal("quote balance", zap.Error(err))
	}
	baseAllowance, err := s.Base.Allowance(ctx, user, s.Market.Address())
	if err != nil {
		logger.Fatal("base allowance", zap.Error(err))
	}
	quoteAllowance, err := s.Quote.Allowance(ctx, user, s.Market.Address())
	if err != nil {
		logger.Fatal("quote allowance", zap.Error(err))
	}
	logger.Info(s.BaseSymbol,
		zap.String("balance", s.Scale.FormatBase(base)),
		zap.String("allowance", s.Scale.FormatBase(baseAllowance)))
	logger.Info(s.QuoteSymbol,
		zap.String("balance", s.Scale.FormatQuote(quote)),
		zap.String("allowance", s.Scale.FormatQuote(quoteAllowance)))

	fmt.Println(strings.Repeat("-", 60))

	acc, err := s.Market.Account(ctx, user)
	if err != nil {
		logger.Fatal("market account", zap.Error(err))
	}
	logger.Info("market account",
		zap.String("liquid_base", s.Scale.FormatBase(acc.Liquid.Base)),
		zap.String("liquid_quote", s.Scale.FormatQuote(acc.Liquid.Quote)),
		zap.String("locked_base", s.Scale.FormatBase(acc.Locked.Base)),
		zap.String("locked_quote", s.Scale.FormatQuote(acc.Locked.Quote)))
}
