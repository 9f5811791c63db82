package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper reaps stale entries and reports how many it removed. The OTP
// memory store and the recovery rate limiter both implement it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StartSweeper calls sweeper.Sweep every interval until ctx is done.
// The returned channel closes once the loop has exited.
func StartSweeper(ctx context.Context, name string, sweeper Sweeper, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sweeper == nil || interval <= 0 {
		close(done)
		return done
	}
	logger = logger.With(zap.String("sweeper", name))

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reaped, err := sweeper.Sweep(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("sweep failed", zap.Error(err))
					continue
				}
				if reaped > 0 {
					logger.Debug("sweep", zap.Int("reaped", reaped))
				}
			}
		}
	}()
	return done
}
