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
Spark Get Fees v%s
Matcher fee and protocol fee schedule of the PAIR market
`
)

func main() {
	user := flag.String("user", "", "also show the fee rates that apply to this address")
	flag.Parse()

	logger := logging.Must("get-fees")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx := context.Background()
	s, err := session.Open(ctx, session.ReadOnly, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, s.Config.TxTimeout)
	defer cancel()

	matcherFee, err := s.Market.MatcherFee(ctx)
	if err != nil {
		logger.Fatal("matcher fee", zap.Error(err))
	}
	logger.Info("matcher fee", zap.String("wei", matcherFee.String()))

	tiers, err := s.Market.ProtocolFee(ctx)
	if err != nil {
		logger.Fatal("protocol fee", zap.Error(err))
	}
	for i, tier := range tiers {
		logger.Info("protocol fee tier",
			zap.Int("tier", i),
			zap.String("maker_bps", tier.MakerFee.String()),
			zap.String("taker_bps", tier.TakerFee.String()),
			zap.String("volume_threshold", s.Scale.FormatQuote(tier.VolumeThreshold)))
	}

	if *user == "" {
		return
	}
	if !common.IsHexAddress(*user) {
		logger.Fatal("invalid -user address", zap.String("user", *user))
	}
	maker, taker, err := s.Market.ProtocolFeeUser(ctx, common.HexToAddress(*user))
	if err != nil {
		logger.Fatal("protocol fee for user", zap.Error(err))
	}
	logger.Info("user fee rates",
		zap.String("user", *user),
		zap.String("maker_bps", maker.String()),
		zap.String("taker_bps", taker.String()))
}
