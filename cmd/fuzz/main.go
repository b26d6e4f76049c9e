package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/config"
	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/session"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
)

const (
	version = "0.1.0"
	banner  = `
Spark Fuzz v%s
Two traders place the same random crossing orders, round after round
`
)

func main() {
	fuzzCfg := strategy.DefaultFuzzConfig()
	loops := flag.Int("loops", 25, "rounds per pass")
	forever := flag.Bool("forever", false, "repeat passes until interrupted")
	baseDeposit := flag.Int64("base-deposit", 1_000_000_000, "base minted and deposited per trader per round, contract units")
	quoteDeposit := flag.Int64("quote-deposit", 1_000_000_000_000, "quote minted and deposited per trader per round, contract units")
	pause := flag.Duration("pause", time.Second, "wait between rounds")
	flag.IntVar(&fuzzCfg.Rounds, "pairs", fuzzCfg.Rounds, "buy/sell pairs per round")
	flag.Parse()

	logger := logging.Must("fuzz")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := session.Open(ctx, session.Signing, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer s.Close()

	traders := []*session.Session{s}
	if key := config.String("PRIVATE_KEY_2", ""); key != "" {
		peer, err := s.As(ctx, key)
		if err != nil {
			logger.Fatal("second trader", zap.Error(err))
		}
		traders = append(traders, peer)
	} else {
		logger.Warn("PRIVATE_KEY_2 not set, both traders use the same wallet")
		traders = append(traders, s)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, initiating shutdown", zap.Stringer("signal", sig))
		cancel()
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	deposit := market.Balance{Base: big.NewInt(*baseDeposit), Quote: big.NewInt(*quoteDeposit)}

	for pass := 1; ; pass++ {
		for round := 1; round <= *loops; round++ {
			quotes := strategy.Fuzz(rng, fuzzCfg)
			logger.Info("round", zap.Int("pass", pass), zap.Int("round", round), zap.Int("orders", len(quotes)))

			for i, t := range traders {
				if err := fund(ctx, t, deposit); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					logger.Fatal("funding failed", zap.Int("trader", i), zap.Error(err))
				}
				placed, err := strategy.PlaceEach(ctx, t.Market, quotes, t.Scale, 0, logger.With(zap.Int("trader", i)))
				if err != nil {
					return
				}
				logger.Info("trader done", zap.Int("trader", i), zap.Int("opened", len(placed.IDs)), zap.Int("failed", placed.Failed))
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(*pause):
			}
		}
		if !*forever {
			return
		}
	}
}

// fund mints test tokens to the trader and deposits them.
func fund(ctx context.Context, t *session.Session, amount market.Balance) error {
	ctx, cancel := context.WithTimeout(ctx, t.Config.TxTimeout)
	defer cancel()

	if _, err := t.Base.Mint(ctx, t.User(), amount.Base); err != nil {
		return fmt.Errorf("mint base: %w", err)
	}
	if _, err := t.Quote.Mint(ctx, t.User(), amount.Quote); err != nil {
		return fmt.Errorf("mint quote: %w", err)
	}
	_, err := t.Funder().Deposit(ctx, amount)
	return err
}
