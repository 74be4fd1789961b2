package poller

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the completion condition is not observed
// within the attempt bound.
var ErrTimeout = errors.New("poller: attempt bound exhausted")

// DefaultMaxAttempts bounds Until when Config.MaxAttempts is not set.
const DefaultMaxAttempts = 600

// Config bounds one completion poll.
type Config struct {
	Interval    time.Duration // wait between kick and read
	MaxAttempts int           // <= 0 means DefaultMaxAttempts
}

// Until performs kick, waits Interval, then read, until done reports true.
// Errors from kick or read abort immediately: they mean the exchange
// itself failed, not that the condition is still pending.
func Until[T any](
	ctx context.Context,
	cfg Config,
	kick func(context.Context) error,
	read func(context.Context) (T, error),
	done func(T) bool,
) (T, error) {
	limit := cfg.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}

	var last T
	for attempt := 1; attempt <= limit; attempt++ {
		if kick != nil {
			if err := kick(ctx); err != nil {
				return last, err
			}
		}

		if err := Wait(ctx, cfg.Interval); err != nil {
			return last, err
		}

		v, err := read(ctx)
		if err != nil {
			return v, err
		}
		last = v

		if done(v) {
			return v, nil
		}
	}

	return last, fmt.Errorf("%w after %d attempts", ErrTimeout, limit)
}

// Wait sleeps for d or until ctx is done. A non-positive d only checks ctx.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
