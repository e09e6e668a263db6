package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes versions that are neither current nor recent
type Pruner interface {
	DeleteSuperseded(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionCleanup periodically removes superseded versions older than
// maxAge until ctx is cancelled. The current version of every phone is kept.
func RetentionCleanup(ctx context.Context, every, maxAge time.Duration, p Pruner) {
	ticker := time.NewTicker(every)

	zap.L().Debug("Retention cleanup attached", zap.Duration("tick_every", every), zap.Duration("max_age", maxAge))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				pruneOnce(ctx, p, t.Add(-maxAge))
			}
		}
	}()
}

func pruneOnce(ctx context.Context, p Pruner, cutoff time.Time) int64 {
	n, err := p.DeleteSuperseded(ctx, cutoff)
	if err != nil {
		zap.L().Error("Failed to cleanup superseded verifications", zap.Error(err))
		return 0
	}

	if n > 0 {
		zap.L().Debug("Cleaned up superseded verifications", zap.Int64("count", n))
	}

	return n
}
