package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger deletes records whose expiry lies before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RunExpiredCleaner purges expired verification codes and revoked sessions
// every interval until ctx is done. It returns nil on cancellation so it
// can run as an errgroup member.
func RunExpiredCleaner(ctx context.Context, store Purger, interval time.Duration, log *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := store.PurgeExpired(ctx, time.Now())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("failed to purge expired records", zap.Error(err))
				continue
			}
			if removed > 0 {
				log.Info("purged expired records", zap.Int64("removed", removed))
			}
		}
	}
}
