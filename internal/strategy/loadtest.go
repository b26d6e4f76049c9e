package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/telegram"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

// Shape selects how the load test lays out its orders.
type Shape string

const (
	// ShapeNormal spreads liquidity over a normal-weighted price grid.
	ShapeNormal Shape = "normal"
	// ShapeAlternating places equal sized buys and sells at the market price.
	ShapeAlternating Shape = "alternating"
)

// LoadTestConfig configures the matcher load test.
type LoadTestConfig struct {
	Asset string
	Shape Shape
	Grid  GridConfig

	// alternating shape
	Orders       int
	OrderSizeUSD float64

	// Readable amounts deposited every iteration. When both are zero the
	// iteration deposits exactly what its orders lock.
	DepositBase  float64
	DepositQuote float64

	// multiplier applied to the price on odd iterations, 0 or 1 disables it
	OddDiscount float64

	BatchSize  int
	BatchPause time.Duration
	Interval   time.Duration
	Iterations int // 0 runs until the context ends
}

// DefaultLoadTestConfig is the BTC grid test: 1 BTC and 3000 USDC deposited
// per iteration, prices 2% lower every other iteration, batches of 10.
func DefaultLoadTestConfig(asset string) LoadTestConfig {
	return LoadTestConfig{
		Asset:        asset,
		Shape:        ShapeNormal,
		Grid:         DefaultGridConfig(),
		Orders:       100,
		OrderSizeUSD: 10,
		DepositBase:  1,
		DepositQuote: 3000,
		OddDiscount:  0.98,
		BatchSize:    10,
		BatchPause:   time.Second,
		Interval:     30 * time.Second,
	}
}

// LoadTestReport describes one iteration.
type LoadTestReport struct {
	Iteration int
	Price     float64
	Quotes    int
	Batches   []*batch.Result
	Orders    int // open orders after the iteration
}

// LoadTest floods a market with batches of orders.
type LoadTest struct {
	market   *market.Market
	funder   *Funder
	prices   PriceSource
	scale    Scale
	cfg      LoadTestConfig
	telegram *telegram.Bot
	logger   *zap.Logger
}

// NewLoadTest wires a load test. tg may be nil.
func NewLoadTest(m *market.Market, funder *Funder, prices PriceSource, s Scale, cfg LoadTestConfig, tg *telegram.Bot, logger *zap.Logger) (*LoadTest, error) {
	if m == nil || m.Transactor() == nil {
		return nil, errors.New("a signing market client is required")
	}
	if funder == nil || prices == nil {
		return nil, errors.New("funder and price source are required")
	}
	switch cfg.Shape {
	case ShapeNormal, ShapeAlternating:
	default:
		return nil, fmt.Errorf("unknown load test shape %q", cfg.Shape)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadTest{
		market:   m,
		funder:   funder,
		prices:   prices,
		scale:    s,
		cfg:      cfg,
		telegram: tg,
		logger:   logger,
	}, nil
}

// Run executes iterations until cfg.Iterations is reached, an iteration
// fails or ctx ends.
func (lt *LoadTest) Run(ctx context.Context) ([]LoadTestReport, error) {
	var reports []LoadTestReport

	for i := 1; lt.cfg.Iterations == 0 || i <= lt.cfg.Iterations; i++ {
		report, err := lt.Iteration(ctx, i)
		if err != nil {
			if lt.telegram != nil {
				if nerr := lt.telegram.NotifyError(err); nerr != nil {
					lt.logger.Warn("telegram notify error", zap.Error(nerr))
				}
			}
			return reports, fmt.Errorf("iteration %d: %w", i, err)
		}
		reports = append(reports, report)

		if lt.cfg.Iterations != 0 && i == lt.cfg.Iterations {
			break
		}
		lt.logger.Info("waiting before the next iteration", zap.Duration("wait", lt.cfg.Interval))
		if err := sleep(ctx, lt.cfg.Interval); err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Quotes lays out the orders for one iteration at price.
func (lt *LoadTest) Quotes(price float64) []Quote {
	if lt.cfg.Shape == ShapeAlternating {
		return Alternating(price, lt.cfg.Orders, lt.cfg.OrderSizeUSD, lt.scale)
	}
	return NormalGrid(price, lt.cfg.Grid, lt.scale)
}

// Iteration deposits, reads the fee schedule and submits the iteration's
// orders in batches. Any failed batch ends the iteration.
func (lt *LoadTest) Iteration(ctx context.Context, iteration int) (LoadTestReport, error) {
	report := LoadTestReport{Iteration: iteration}
	user := lt.market.Transactor().From()
	lt.logger.Info("starting iteration", zap.Int("iteration", iteration))

	if acct, err := lt.market.Account(ctx, user); err == nil {
		lt.logger.Info("account before deposit", zap.Stringer("account", acct))
	}

	price, err := lt.prices.Price(ctx, lt.cfg.Asset)
	if err != nil {
		return report, fmt.Errorf("failed to get %s price: %w", lt.cfg.Asset, err)
	}
	if iteration%2 == 1 && lt.cfg.OddDiscount > 0 && lt.cfg.OddDiscount != 1 {
		price *= lt.cfg.OddDiscount
		lt.logger.Info("adjusted price", zap.String("asset", lt.cfg.Asset), zap.Float64("price", price))
	} else {
		lt.logger.Info("current price", zap.String("asset", lt.cfg.Asset), zap.Float64("price", price))
	}
	report.Price = price

	quotes := lt.Quotes(price)
	report.Quotes = len(quotes)

	deposit := market.Balance{Base: lt.scale.Base(lt.cfg.DepositBase), Quote: lt.scale.Quote(lt.cfg.DepositQuote)}
	if lt.cfg.DepositBase == 0 && lt.cfg.DepositQuote == 0 {
		deposit = lt.scale.Required(quotes)
	}
	if _, err := lt.funder.Deposit(ctx, deposit); err != nil {
		return report, err
	}

	if err := sleep(ctx, lt.cfg.BatchPause); err != nil {
		return report, err
	}

	fees, err := lt.market.ProtocolFee(ctx)
	if err != nil {
		return report, err
	}
	for _, f := range fees {
		lt.logger.Info("protocol fee",
			zap.Stringer("maker", f.MakerFee),
			zap.Stringer("taker", f.TakerFee),
			zap.Stringer("volume_threshold", f.VolumeThreshold))
	}

	calls, err := OrderCalls(lt.market, quotes, nil)
	if err != nil {
		return report, err
	}

	results, err := batch.SubmitChunked(ctx, lt.market.Transactor(), lt.market.Address(), calls, lt.cfg.BatchSize, lt.cfg.BatchPause)
	report.Batches = results
	for _, res := range results {
		lt.logger.Info("multicall submitted", zap.Int("calls", len(res.Returns)), zap.Stringer("tx", res.TxHash))
		if lt.telegram != nil {
			if nerr := lt.telegram.NotifyBatch("matcher-load-test", len(res.Returns), res.TxHash.Hex()); nerr != nil {
				lt.logger.Warn("telegram notify error", zap.Error(nerr))
			}
		}
	}
	if err != nil {
		return report, err
	}

	if err := sleep(ctx, lt.cfg.BatchPause); err != nil {
		return report, err
	}

	orders, err := lt.market.UserOrders(ctx, user)
	if err != nil {
		return report, err
	}
	report.Orders = len(orders)

	acct, err := lt.market.Account(ctx, user)
	if err != nil {
		return report, err
	}
	lt.logger.Info("iteration done",
		zap.Int("orders", report.Orders),
		zap.String("liquid_base", units.Format(acct.Liquid.Base, lt.scale.BaseDecimals)),
		zap.String("liquid_quote", units.Format(acct.Liquid.Quote, lt.scale.QuoteDecimals)))
	return report, nil
}
