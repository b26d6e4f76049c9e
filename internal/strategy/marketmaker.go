package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/telegram"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

const (
	defaultCancelPause = 500 * time.Millisecond
	defaultOrderPause  = 1 * time.Second
	defaultMMInterval  = 30 * time.Second
)

// MarketMakerConfig configures the market maker loop.
type MarketMakerConfig struct {
	Asset string // priced asset, e.g. "ETH"
	Band  BandConfig

	CancelPause time.Duration // between cancellations
	OrderPause  time.Duration // between new orders
	Interval    time.Duration // between iterations
	Iterations  int           // 0 runs until the context ends
}

// DefaultMarketMakerConfig quotes asset with the default band.
func DefaultMarketMakerConfig(asset string) MarketMakerConfig {
	return MarketMakerConfig{
		Asset:       asset,
		Band:        DefaultBandConfig(),
		CancelPause: defaultCancelPause,
		OrderPause:  defaultOrderPause,
		Interval:    defaultMMInterval,
		Iterations:  1,
	}
}

// MarketMakerReport describes one iteration.
type MarketMakerReport struct {
	Price     float64
	Cancelled int
	Opened    int
	Failed    int
	Deposited market.Balance
	Orders    int // open orders after the iteration
}

// MarketMaker keeps a band of buy and sell orders around the market price.
type MarketMaker struct {
	market   *market.Market
	funder   *Funder
	prices   PriceSource
	scale    Scale
	cfg      MarketMakerConfig
	telegram *telegram.Bot
	logger   *zap.Logger
}

// NewMarketMaker wires a market maker. tg may be nil.
func NewMarketMaker(m *market.Market, funder *Funder, prices PriceSource, s Scale, cfg MarketMakerConfig, tg *telegram.Bot, logger *zap.Logger) (*MarketMaker, error) {
	if m == nil || m.Transactor() == nil {
		return nil, errors.New("a signing market client is required")
	}
	if funder == nil {
		return nil, errors.New("funder is required")
	}
	if prices == nil {
		return nil, errors.New("price source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketMaker{
		market:   m,
		funder:   funder,
		prices:   prices,
		scale:    s,
		cfg:      cfg,
		telegram: tg,
		logger:   logger,
	}, nil
}

// Run repeats RunOnce, waiting Interval between iterations. It stops after
// cfg.Iterations, on the first failed iteration or when ctx ends.
func (mm *MarketMaker) Run(ctx context.Context) error {
	mm.logger.Info("starting",
		zap.String("asset", mm.cfg.Asset),
		zap.Float64("band", mm.cfg.Band.Band),
		zap.Int("levels", mm.cfg.Band.Levels),
		zap.Float64("budget_usd", mm.cfg.Band.BudgetUSD))

	for i := 1; mm.cfg.Iterations == 0 || i <= mm.cfg.Iterations; i++ {
		mm.logger.Info("starting iteration", zap.Int("iteration", i))
		start := time.Now()

		report, err := mm.RunOnce(ctx)
		if err != nil {
			mm.notifyError(err)
			return fmt.Errorf("iteration %d: %w", i, err)
		}

		if mm.telegram != nil {
			if err := mm.telegram.NotifyIteration("market-maker", i, report.Price, report.Opened, report.Cancelled, report.Failed, time.Since(start)); err != nil {
				mm.logger.Warn("telegram notify error", zap.Error(err))
			}
		}

		if mm.cfg.Iterations != 0 && i == mm.cfg.Iterations {
			break
		}
		mm.logger.Info("waiting before the next iteration", zap.Duration("wait", mm.cfg.Interval))
		if err := sleep(ctx, mm.cfg.Interval); err != nil {
			return err
		}
	}
	return nil
}

// RunOnce cancels orders that drifted out of the band, tops up the account and
// opens a fresh band of orders. Failed cancels and opens are logged and
// skipped; a failed deposit ends the iteration.
func (mm *MarketMaker) RunOnce(ctx context.Context) (MarketMakerReport, error) {
	var report MarketMakerReport
	user := mm.market.Transactor().From()

	price, err := mm.prices.Price(ctx, mm.cfg.Asset)
	if err != nil {
		return report, fmt.Errorf("failed to get %s price: %w", mm.cfg.Asset, err)
	}
	report.Price = price

	band, err := Band(price, mm.cfg.Band, mm.scale)
	if err != nil {
		return report, err
	}
	mm.logger.Info("order price range",
		zap.Float64("price", price),
		zap.Float64("low", band.Low),
		zap.Float64("high", band.High))

	cancelled, err := mm.cancelOutside(ctx, user, band)
	if err != nil {
		return report, err
	}
	report.Cancelled = cancelled

	if err := sleep(ctx, mm.cfg.OrderPause); err != nil {
		return report, err
	}

	mm.logger.Info("required balances",
		zap.String("base", units.Format(band.Required.Base, mm.scale.BaseDecimals)),
		zap.String("quote", units.Format(band.Required.Quote, mm.scale.QuoteDecimals)))

	deposited, err := mm.funder.TopUp(ctx, band.Required)
	if err != nil {
		return report, err
	}
	report.Deposited = deposited

	if err := sleep(ctx, mm.cfg.OrderPause); err != nil {
		return report, err
	}

	placed, err := PlaceEach(ctx, mm.market, band.Quotes, mm.scale, mm.cfg.OrderPause, mm.logger)
	report.Opened = len(placed.IDs)
	report.Failed = placed.Failed
	if err != nil {
		return report, err
	}

	orders, err := mm.market.UserOrders(ctx, user)
	if err != nil {
		return report, err
	}
	report.Orders = len(orders)
	mm.logger.Info("iteration done",
		zap.Int("opened", report.Opened),
		zap.Int("failed", report.Failed),
		zap.Int("cancelled", report.Cancelled),
		zap.Int("orders", report.Orders))
	return report, nil
}

func (mm *MarketMaker) cancelOutside(ctx context.Context, user common.Address, band BandLadder) (int, error) {
	ids, err := mm.market.UserOrders(ctx, user)
	if err != nil {
		return 0, err
	}
	mm.logger.Info("existing orders", zap.Int("count", len(ids)))

	orders := make([]market.Order, 0, len(ids))
	for _, id := range ids {
		o, ok, err := mm.market.Order(ctx, id)
		if err != nil {
			return 0, err
		}
		if ok {
			orders = append(orders, o)
		}
	}

	stale := OutsideBand(orders, band.LowPrice, band.HighPrice)
	if len(stale) == 0 {
		mm.logger.Info("no orders to cancel")
		return 0, nil
	}
	mm.logger.Info("orders to cancel", zap.Int("count", len(stale)))

	cancelled := 0
	for _, id := range stale {
		if _, err := mm.market.CancelOrder(ctx, id); err != nil {
			mm.logger.Warn("error cancelling order", zap.String("id", id.Hex()), zap.Error(err))
		} else {
			cancelled++
			mm.logger.Info("order cancelled", zap.String("id", id.Hex()))
		}
		if err := sleep(ctx, mm.cfg.CancelPause); err != nil {
			return cancelled, err
		}
	}
	return cancelled, nil
}

func (mm *MarketMaker) notifyError(err error) {
	if mm.telegram == nil {
		return
	}
	if nerr := mm.telegram.NotifyError(err); nerr != nil {
		mm.logger.Warn("telegram notify error", zap.Error(nerr))
	}
}
