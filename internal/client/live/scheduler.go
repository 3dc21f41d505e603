package live

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/logging"
)

const DefaultInterval = 2 * time.Second

type Scheduler struct {
	fetcher Fetcher
	cache   *Cache
	logger  logging.Logger
}

func NewScheduler(fetcher Fetcher, cache *Cache, logger logging.Logger) *Scheduler {
	return &Scheduler{fetcher: fetcher, cache: cache, logger: logger}
}

func (s *Scheduler) Cache() *Cache { return s.cache }

// Handle is one running refresh loop.
type Handle struct {
	pollID   int64
	viewerID int64
	interval time.Duration
	onUpdate func(models.PollSnapshot)

	sched   *Scheduler
	logger  logging.Logger
	cancel  context.CancelFunc
	done    chan struct{}
	refresh chan struct{}

	stopped  atomic.Bool
	stale    atomic.Bool
	stopOnce sync.Once
}

// Start fetches the poll now and then every interval until the handle is
// stopped or ctx ends. onUpdate runs on the handle's goroutine after each
// accepted response.
func (s *Scheduler) Start(ctx context.Context, pollID, viewerID int64, interval time.Duration, onUpdate func(models.PollSnapshot)) *Handle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		pollID:   pollID,
		viewerID: viewerID,
		interval: interval,
		onUpdate: onUpdate,
		sched:    s,
		logger:   s.logger.With("poll_id", pollID),
		cancel:   cancel,
		done:     make(chan struct{}),
		refresh:  make(chan struct{}, 1),
	}
	s.cache.acquire(pollID)
	go h.run(ctx)
	return h
}

func (h *Handle) run(ctx context.Context) {
	defer close(h.done)
	defer h.sched.cache.release(h.pollID)

	h.tick(ctx)

	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.tick(ctx)
		case <-h.refresh:
			h.tick(ctx)
		}
	}
}

func (h *Handle) tick(ctx context.Context) {
	snap, err := h.sched.fetcher.FetchSnapshot(ctx, h.pollID, h.viewerID)
	if ctx.Err() != nil || h.stopped.Load() {
		return
	}
	if err != nil {
		if !h.stale.Swap(true) {
			h.logger.Warn(ctx, "poll refresh failed, showing stale data", "error", err)
		} else {
			h.logger.Debug(ctx, "poll refresh failed", "error", err)
		}
		return
	}

	applied, ok := h.sched.cache.apply(*snap, func() bool { return !h.stopped.Load() })
	if !ok {
		return
	}
	if h.stale.Swap(false) {
		h.logger.Info(ctx, "poll refresh recovered")
	}
	h.logger.Debug(ctx, "poll refreshed", "total_votes", applied.TotalVotes)
	if h.onUpdate != nil {
		h.onUpdate(applied)
	}
}

// RefreshNow asks the loop for an extra fetch. Requests made while one is
// already pending collapse into it.
func (h *Handle) RefreshNow() {
	if h.stopped.Load() {
		return
	}
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and any request in flight and waits for the loop to
// exit. No update is applied after Stop returns. Stop must not be called
// from onUpdate.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.sched.cache.mu.Lock()
		h.stopped.Store(true)
		h.sched.cache.mu.Unlock()
		h.cancel()
	})
	<-h.done
}

// Stale reports whether the most recent refresh failed.
func (h *Handle) Stale() bool { return h.stale.Load() }

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) PollID() int64 { return h.pollID }
