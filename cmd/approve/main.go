package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/erc20"
	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/session"
)

const (
	version = "0.1.0"
	banner  = `
Spark Approval Tool v%s
One-time approval of the PAIR market for both of its tokens
`
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	logger := logging.Must("approve")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 70))

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	logger.Info("approval",
		zap.String("wallet", s.User().Hex()),
		zap.String("spender", s.Market.Address().Hex()),
		zap.String(s.BaseSymbol, s.Base.Address().Hex()),
		zap.String(s.QuoteSymbol, s.Quote.Address().Hex()),
		zap.String("amount", "MAX (2^256 - 1)"))
	fmt.Println(strings.Repeat("-", 70))

	if !*yes && !confirmAction(s.Config.Pair) {
		logger.Info("operation cancelled by user")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	for _, t := range []struct {
		symbol string
		token  *erc20.Token
	}{{s.BaseSymbol, s.Base}, {s.QuoteSymbol, s.Quote}} {
		current, err := t.token.Allowance(ctx, s.User(), s.Market.Address())
		if err != nil {
			logger.Fatal("allowance", zap.String("token", t.symbol), zap.Error(err))
		}
		if current.Cmp(maxUint256) == 0 {
			logger.Info("already approved", zap.String("token", t.symbol))
			continue
		}

		out, err := t.token.Approve(ctx, s.Market.Address(), maxUint256)
		if err != nil {
			logger.Fatal("approval failed", zap.String("token", t.symbol), zap.Error(err))
		}
		logger.Info("approval confirmed", zap.String("token", t.symbol), zap.Stringer("tx", out.TxHash()))
	}
}

func confirmAction(pair string) bool {
	fmt.Println()
	fmt.Printf("This will approve the %s market to spend your tokens.\n", pair)
	fmt.Println("Deposits then skip the per-deposit approval.")
	fmt.Println()
	fmt.Print("Do you want to proceed? (yes/no): ")

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	input = strings.TrimSpace(strings.ToLower(input))
	return input == "yes" || input == "y"
}
