package strategy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

// Placed is the outcome of PlaceEach.
type Placed struct {
	IDs    []market.OrderID
	Failed int
}

// PlaceEach opens quotes one transaction at a time, waiting pause after each.
// A rejected order is logged and skipped. Only ctx ending stops it early.
func PlaceEach(ctx context.Context, m *market.Market, quotes []Quote, s Scale, pause time.Duration, logger *zap.Logger) (Placed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var placed Placed
	for _, q := range quotes {
		id, _, err := m.OpenOrder(ctx, q.Amount, q.Side, q.Price, nil)
		if err != nil {
			if ctx.Err() != nil {
				return placed, ctx.Err()
			}
			placed.Failed++
			logger.Warn("error opening order",
				zap.Stringer("side", q.Side),
				zap.String("amount", units.Format(q.Amount, s.BaseDecimals)),
				zap.Float64("price", s.ReadablePrice(q.Price)),
				zap.Error(err))
		} else {
			placed.IDs = append(placed.IDs, id)
			logger.Info("order opened",
				zap.Stringer("side", q.Side),
				zap.String("amount", units.Format(q.Amount, s.BaseDecimals)),
				zap.Float64("price", s.ReadablePrice(q.Price)),
				zap.String("id", id.Short()))
		}

		if err := sleep(ctx, pause); err != nil {
			return placed, err
		}
	}
	return placed, nil
}
