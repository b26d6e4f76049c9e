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
	"github.com/dantezy/spark-market-scripts/internal/units"
)

const (
	version = "0.1.0"
	banner  = `
Spark Open Order v%s
Deposit both assets and open one buy and one sell limit order
`
)

func main() {
	amount := flag.Float64("amount", 0.1, "base amount of each order")
	price := flag.Float64("price", 70000, "limit price in quote per base")
	depositBase := flag.Float64("deposit-base", 1, "base to deposit first")
	depositQuote := flag.Float64("deposit-quote", 10000, "quote to deposit first")
	flag.Parse()

	logger := logging.Must("open-order")
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

	if _, err := s.LogAccount(ctx, "account before"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}

	for _, side := range []market.AssetType{market.Base, market.Quote} {
		addr, decimals, sym := s.Asset(side)
		tok, err := s.Token(sym)
		if err != nil {
			logger.Fatal("token", zap.Error(err))
		}
		bal, err := tok.BalanceOf(ctx, s.User())
		if err != nil {
			logger.Fatal("wallet balance", zap.Error(err))
		}
		logger.Info("wallet balance",
			zap.String("asset", sym),
			zap.String("token", addr.Hex()),
			zap.String("amount", units.Format(bal, decimals)))
	}

	deposit := market.Balance{Base: s.Scale.Base(*depositBase), Quote: s.Scale.Quote(*depositQuote)}
	logger.Info("depositing",
		zap.String(s.BaseSymbol, s.Scale.FormatBase(deposit.Base)),
		zap.String(s.QuoteSymbol, s.Scale.FormatQuote(deposit.Quote)))
	if _, err := s.Funder().Deposit(ctx, deposit); err != nil {
		logger.Fatal("deposit failed", zap.Error(err))
	}
	logger.Info("deposit success")

	size := s.Scale.Base(*amount)
	limit := s.Scale.Price(*price)
	for _, side := range []market.OrderType{market.Buy, market.Sell} {
		logger.Info("opening order",
			zap.Stringer("side", side),
			zap.String("amount", s.Scale.FormatBase(size)),
			zap.String("price", s.Scale.FormatPrice(limit)))
		id, _, err := s.Market.OpenOrder(ctx, size, side, limit, nil)
		if err != nil {
			logger.Fatal("open order failed", zap.Stringer("side", side), zap.Error(err))
		}
		logger.Info("open order success", zap.Stringer("side", side), zap.String("id", id.Hex()))
	}

	ids, err := s.Market.UserOrders(ctx, s.User())
	if err != nil {
		logger.Fatal("user orders", zap.Error(err))
	}
	logger.Info("orders", zap.Int("count", len(ids)))

	if _, err := s.LogAccount(ctx, "account after"); err != nil {
		logger.Fatal("account", zap.Error(err))
	}
}
