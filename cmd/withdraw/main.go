package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

const (
	version = "0.1.0"
	banner  = `
Spark Withdraw v%s
Cancel every open order and withdraw the liquid balances
`
)

func main() {
	baseAmount := flag.Float64("base", -1, "base to withdraw, -1 for all liquid")
	quoteAmount := flag.Float64("quote", -1, "quote to withdraw, -1 for all liquid")
	flag.Parse()

	logger := logging.Must("withdraw")
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

	if _, err := s.LogAccount(ctx, "balances"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}

	ids, err := s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("cancelling orders", zap.Int("count", len(ids)))
	if len(ids) > 0 {
		calls, err := strategy.CancelCalls(s.Market, ids)
		if err != nil {
			logger.Fatal("failed to build cancels", zap.Error(err))
		}
		res, err := s.Market.Batch().AddAll(calls...).Submit(ctx)
		if err != nil {
			logger.Fatal("cancel failed", zap.Error(err))
		}
		logger.Info("submitted cancel transaction", zap.Stringer("tx", res.TxHash))
	} else {
		logger.Info("no orders to cancel")
	}

	acc, err := s.LogAccount(ctx, "balances after cancel")
	if err != nil {
		logger.Fatal("account", zap.Error(err))
	}

	withdrawals := []struct {
		asset  market.AssetType
		amount *big.Int
	}{
		{market.Base, pick(*baseAmount, acc.Liquid.Base, s.Scale.Base)},
		{market.Quote, pick(*quoteAmount, acc.Liquid.Quote, s.Scale.Quote)},
	}
	for _, w := range withdrawals {
		_, decimals, sym := s.Asset(w.asset)
		if w.amount.Sign() <= 0 {
			logger.Info("nothing to withdraw", zap.String("asset", sym))
			continue
		}
		logger.Info("withdrawing", zap.String("asset", sym), zap.String("amount", units.Format(w.amount, decimals)))
		if _, err := s.Market.Withdraw(ctx, w.amount, w.asset); err != nil {
			logger.Fatal("withdraw failed", zap.String("asset", sym), zap.Error(err))
		}
		logger.Info("withdraw success", zap.String("asset", sym))
	}
}

// pick returns the liquid balance for negative amounts and the scaled amount otherwise.
func pick(amount float64, liquid *big.Int, scale func(float64) *big.Int) *big.Int {
	if amount < 0 {
		return liquid
	}
	return scale(amount)
}
