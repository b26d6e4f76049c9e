package strategy

import (
	"context"
	"time"
)

// PriceSource reports the USD price of an asset.
type PriceSource interface {
	Price(ctx context.Context, asset string) (float64, error)
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
