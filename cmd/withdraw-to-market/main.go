package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Withdraw To Market v%s
Cancel all orders, withdraw base to the wallet and move quote to another market
`
)

func main() {
	to := flag.String("to", "ETH_USDC", "pair whose market receives the quote")
	deposit := flag.Float64("deposit", 0.01, "quote to deposit first")
	flag.Parse()

	logger := logging.Must("withdraw-to-market")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx := context.Background()
	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	target, err := s.MarketFor(*to)
	if err != nil {
		logger.Fatal("target market", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	if *deposit > 0 {
		logger.Info("depositing", zap.String(s.QuoteSymbol, fmt.Sprint(*deposit)))
		if _, err := s.Funder().Deposit(ctx, market.Balance{Quote: s.Scale.Quote(*deposit)}); err != nil {
			logger.Fatal("deposit failed", zap.Error(err))
		}
	}

	acc, err := s.LogAccount(ctx, "balances")
	if err != nil {
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

	// amounts read before the cancels, as liquid funds only
	if acc.Liquid.Base.Sign() > 0 {
		logger.Info("withdrawing base", zap.String("amount", s.Scale.FormatBase(acc.Liquid.Base)))
		if _, err := s.Market.Withdraw(ctx, acc.Liquid.Base, market.Base); err != nil {
			logger.Fatal("withdraw base failed", zap.Error(err))
		}
		logger.Info("withdraw base success")
	}

	if acc.Liquid.Quote.Sign() > 0 {
		logger.Info("moving quote",
			zap.String("amount", s.Scale.FormatQuote(acc.Liquid.Quote)),
			zap.String("to", target.Address().Hex()))
		if _, err := s.Market.WithdrawToMarket(ctx, acc.Liquid.Quote, market.Quote, target.Address()); err != nil {
			logger.Fatal("withdraw quote failed", zap.Error(err))
		}
		logger.Info("withdraw quote success")
	}
}
