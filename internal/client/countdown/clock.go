package countdown

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Run calls fn with the clock's time immediately and then on every tick
// until ctx is done. fn runs on the caller's goroutine.
func Run(ctx context.Context, tick time.Duration, clock Clock, fn func(now time.Time)) {
	if ctx.Err() != nil {
		return
	}
	fn(clock.Now())

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(clock.Now())
		}
	}
}
