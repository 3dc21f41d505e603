package views

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/live"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/session"
	"github.com/dmitrijs2005/electica/internal/logging"
)

var (
	ErrMounted    = errors.New("view is already mounted")
	ErrNotMounted = errors.New("view is not mounted")
)

type Options struct {
	RefreshInterval time.Duration
	CountdownTick   time.Duration
}

func (o Options) withDefaults() Options {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = live.DefaultInterval
	}
	if o.CountdownTick <= 0 {
		o.CountdownTick = time.Second
	}
	return o
}

// mount is the lifetime of one mounted view.
type mount struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// ResultsView shows a poll's live results with a running countdown.
type ResultsView struct {
	sched    *live.Scheduler
	sessions Sessions
	clock    countdown.Clock
	render   Renderer
	opts     Options
	logger   logging.Logger

	// renderMu serializes renders coming from the refresh loop and the
	// countdown ticker.
	renderMu sync.Mutex
	snap     *models.PollSnapshot

	mu     sync.Mutex
	cur    *mount
	handle atomic.Pointer[live.Handle]
}

func NewResultsView(sched *live.Scheduler, sessions Sessions, clock countdown.Clock, r Renderer, opts Options, logger logging.Logger) *ResultsView {
	return &ResultsView{
		sched:    sched,
		sessions: sessions,
		clock:    clock,
		render:   r,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Mount starts refreshing pollID and ticking its countdown. The view stays
// mounted until Unmount, until ctx ends or until the session is lost.
func (v *ResultsView) Mount(ctx context.Context, pollID int64) error {
	snap := v.sessions.Snapshot()
	if !snap.Authenticated() {
		return session.ErrNotAuthenticated
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cur != nil {
		return ErrMounted
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &mount{cancel: cancel, done: make(chan struct{})}

	unsubscribe := v.sessions.Subscribe(func(s session.Snapshot) {
		if !s.Authenticated() {
			cancel()
		}
	})
	if !v.sessions.Snapshot().Authenticated() {
		cancel()
	}

	v.renderMu.Lock()
	v.snap = nil
	v.renderMu.Unlock()

	h := v.sched.Start(ctx, pollID, snap.Profile.ID, v.opts.RefreshInterval, v.onUpdate)

	var ticker sync.WaitGroup
	ticker.Add(1)
	go func() {
		defer ticker.Done()
		countdown.Run(ctx, v.opts.CountdownTick, v.clock, v.onTick)
	}()

	go func() {
		<-ctx.Done()
		h.Stop()
		unsubscribe()
		ticker.Wait()
		v.release(m)
		v.logger.Debug(context.Background(), "results view unmounted", "poll_id", pollID)
		close(m.done)
	}()

	v.cur = m
	v.handle.Store(h)
	v.logger.Debug(ctx, "results view mounted", "poll_id", pollID)
	return nil
}

// Unmount stops the refresh loop and the countdown and waits for both.
// It is safe to call on a view that is not mounted.
func (v *ResultsView) Unmount() {
	v.mu.Lock()
	m := v.cur
	v.cur = nil
	v.handle.Store(nil)
	v.mu.Unlock()
	if m == nil {
		return
	}
	m.cancel()
	<-m.done
}

// release forgets m if it is still the current mount, so a view that
// stopped on its own can be mounted again.
func (v *ResultsView) release(m *mount) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cur == m {
		v.cur = nil
		v.handle.Store(nil)
	}
}

// Done is closed once the current mount has fully stopped. It returns a
// closed channel when nothing is mounted.
func (v *ResultsView) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cur == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return v.cur.done
}

// RefreshNow asks for an immediate refresh of the mounted poll.
func (v *ResultsView) RefreshNow() error {
	h := v.handle.Load()
	if h == nil {
		return ErrNotMounted
	}
	h.RefreshNow()
	return nil
}

// Current returns the last snapshot shown, if any.
func (v *ResultsView) Current() (models.PollSnapshot, bool) {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	if v.snap == nil {
		return models.PollSnapshot{}, false
	}
	return v.snap.Normalize(), true
}

func (v *ResultsView) mountedPoll() (int64, bool) {
	h := v.handle.Load()
	if h == nil {
		return 0, false
	}
	return h.PollID(), true
}

func (v *ResultsView) stale() bool {
	h := v.handle.Load()
	return h != nil && h.Stale()
}

func (v *ResultsView) onUpdate(s models.PollSnapshot) {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	v.snap = &s
	v.draw(v.clock.Now())
}

func (v *ResultsView) onTick(now time.Time) {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	if v.snap == nil {
		return
	}
	v.draw(now)
}

// draw runs with renderMu held.
func (v *ResultsView) draw(now time.Time) {
	v.render.RenderResults(ResultsFrame{
		Poll:      v.snap.Normalize(),
		Countdown: countdown.Derive(v.snap.ExpiryTime, v.snap.ClosedByOwner, now),
		Stale:     v.stale(),
		Now:       now,
	})
}
