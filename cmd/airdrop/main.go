package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

const (
	version = "0.1.0"
	banner  = `
Spark Airdrop v%s
Send a fixed amount to every address in a file, one per line
`
)

func main() {
	file := flag.String("file", "addresses", "recipient list")
	asset := flag.String("asset", "", "token symbol, empty sends the native coin")
	amount := flag.String("amount", "0.000000000000000001", "readable amount per recipient")
	flag.Parse()

	logger := logging.Must("airdrop")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("failed to open recipients", zap.Error(err))
	}
	recipients, err := strategy.ReadRecipients(f)
	f.Close()
	if err != nil {
		logger.Fatal("failed to read recipients", zap.Error(err))
	}

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	var send strategy.Sender
	if *asset == "" {
		value, err := units.FromReadable(*amount, 18)
		if err != nil {
			logger.Fatal("invalid amount", zap.Error(err))
		}
		send = strategy.NativeSender(s.Tx, value)
	} else {
		token, err := s.Token(*asset)
		if err != nil {
			logger.Fatal("token", zap.Error(err))
		}
		decimals, err := token.Decimals(ctx)
		if err != nil {
			logger.Fatal("token decimals", zap.Error(err))
		}
		value, err := units.FromReadable(*amount, uint32(decimals))
		if err != nil {
			logger.Fatal("invalid amount", zap.Error(err))
		}
		send = strategy.TokenSender(token, value)
	}

	logger.Info("starting airdrop",
		zap.String("from", s.User().Hex()),
		zap.String("amount", *amount),
		zap.String("asset", *asset),
		zap.Int("recipients", len(recipients)))

	timeout := s.Config.TxTimeout
	report, err := strategy.Airdrop(ctx, recipients, func(ctx context.Context, to common.Address) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return send(ctx, to)
	}, logger)
	if err != nil {
		logger.Fatal("airdrop stopped", zap.Error(err))
	}
	logger.Info("airdrop completed", zap.Int("sent", len(report.Sent)), zap.Int("failed", len(report.Failed)))
}
