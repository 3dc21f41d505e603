package views

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/services"
	"github.com/dmitrijs2005/electica/internal/client/session"
	"github.com/dmitrijs2005/electica/internal/logging"
)

// DashboardView loads the user's polls once per mount and then only
// re-renders as countdowns move.
type DashboardView struct {
	svc      services.DashboardService
	sessions Sessions
	clock    countdown.Clock
	render   Renderer
	tick     time.Duration
	logger   logging.Logger

	mu  sync.Mutex
	cur *mount
}

func NewDashboardView(svc services.DashboardService, sessions Sessions, clock countdown.Clock, r Renderer, opts Options, logger logging.Logger) *DashboardView {
	return &DashboardView{
		svc:      svc,
		sessions: sessions,
		clock:    clock,
		render:   r,
		tick:     opts.withDefaults().CountdownTick,
		logger:   logger,
	}
}

// Mount loads the dashboard and starts the countdown ticker. A failed load
// leaves the view unmounted.
func (v *DashboardView) Mount(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cur != nil {
		return ErrMounted
	}

	d, err := v.svc.Load(ctx)
	if err != nil {
		return err
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

	go func() {
		defer close(m.done)
		defer v.release(m)
		defer unsubscribe()
		countdown.Run(ctx, v.tick, v.clock, func(now time.Time) {
			v.render.RenderDashboard(DashboardFrame{
				Dashboard: *d,
				Stats:     services.ComputeStats(d.Created, now),
				Now:       now,
			})
		})
	}()

	v.cur = m
	v.logger.Debug(ctx, "dashboard mounted", "created", len(d.Created), "voted", len(d.Voted))
	return nil
}

func (v *DashboardView) Unmount() {
	v.mu.Lock()
	m := v.cur
	v.cur = nil
	v.mu.Unlock()
	if m == nil {
		return
	}
	m.cancel()
	<-m.done
}

// release forgets m if it is still the current mount.
func (v *DashboardView) release(m *mount) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cur == m {
		v.cur = nil
	}
}

func (v *DashboardView) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cur == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return v.cur.done
}
