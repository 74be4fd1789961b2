package poller

import (
	"context"
	"time"
)

// Run calls fn once per interval until ctx is done.
// One goroutine per caller. No overlap: a slow fn delays the next tick.
func Run(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(now)
		}
	}
}
