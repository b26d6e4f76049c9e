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
Spark Mint v%s
Mint testnet tokens
`
)

func main() {
	asset := flag.String("asset", "", "token symbol (default: the PAIR quote)")
	amount := flag.String("amount", "1000", "readable amount")
	to := flag.String("to", "", "recipient (default: the configured wallet)")
	flag.Parse()

	logger := logging.Must("mint")
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

	symbol := *asset
	if symbol == "" {
		symbol = s.QuoteSymbol
	}
	token, err := s.Token(symbol)
	if err != nil {
		logger.Fatal("token", zap.Error(err))
	}

	recipient := s.User()
	if *to != "" {
		if !common.IsHexAddress(*to) {
			logger.Fatal("invalid -to address", zap.String("to", *to))
		}
		recipient = common.HexToAddress(*to)
	}

	decimals, err := token.Decimals(ctx)
	if err != nil {
		logger.Fatal("token decimals", zap.Error(err))
	}
	value, err := units.FromReadable(*amount, uint32(decimals))
	if err != nil {
		logger.Fatal("invalid amount", zap.Error(err))
	}

	out, err := token.Mint(ctx, recipient, value)
	if err != nil {
		logger.Fatal("mint failed", zap.Error(err))
	}
	logger.Info("minted",
		zap.String("asset", strings.ToUpper(symbol)),
		zap.String("amount", *amount),
		zap.String("to", recipient.Hex()),
		zap.Stringer("tx", out.TxHash()))

	balance, err := token.BalanceOf(ctx, recipient)
	if err != nil {
		logger.Fatal("balance", zap.Error(err))
	}
	logger.Info("balance", zap.String("amount", units.Format(balance, uint32(decimals))))
}
