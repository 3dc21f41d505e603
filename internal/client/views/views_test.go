package views

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/live"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/services"
	"github.com/dmitrijs2005/electica/internal/client/session"
	"github.com/dmitrijs2005/electica/internal/logging"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSessions struct {
	mu   sync.Mutex
	snap session.Snapshot
	subs map[int]func(session.Snapshot)
	next int
}

func newSessions(authenticated bool) *fakeSessions {
	s := &fakeSessions{subs: map[int]func(session.Snapshot){}}
	s.snap = session.Snapshot{Status: session.StatusAnonymous}
	if authenticated {
		s.snap = session.Snapshot{
			Status:  session.StatusAuthenticated,
			Token:   "abc",
			Profile: &models.Profile{ID: 7, Username: "ana"},
		}
	}
	return s
}

func (s *fakeSessions) Snapshot() session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSessions) Subscribe(fn func(session.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *fakeSessions) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *fakeSessions) logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = session.Snapshot{Status: session.StatusAnonymous}
	for _, fn := range s.subs {
		fn(s.snap)
	}
}

func (s *fakeSessions) login() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = newSessions(true).snap
	for _, fn := range s.subs {
		fn(s.snap)
	}
}

// fakeFetcher serves a scripted sequence of responses; the last one repeats.
type fakeFetcher struct {
	mu     sync.Mutex
	script []func() (*models.PollSnapshot, error)
	calls  atomic.Int32
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
	n := int(f.calls.Add(1)) - 1
	f.mu.Lock()
	if n >= len(f.script) {
		n = len(f.script) - 1
	}
	step := f.script[n]
	f.mu.Unlock()
	return step()
}

func serve(counts ...int64) func() (*models.PollSnapshot, error) {
	return func() (*models.PollSnapshot, error) {
		s := &models.PollSnapshot{ID: 1, Question: "Lunch?", ExpiryTime: ptr(base.Add(3665 * time.Second))}
		for i, c := range counts {
			s.Options = append(s.Options, models.Option{ID: int64(i + 1), VoteCount: c})
		}
		return s, nil
	}
}

func fail() (*models.PollSnapshot, error) {
	return nil, &client.FetchError{Kind: client.ErrNetworkFailure}
}

type recorder struct {
	mu        sync.Mutex
	results   []ResultsFrame
	dashboard []DashboardFrame
}

func (r *recorder) RenderResults(f ResultsFrame) {
	r.mu.Lock()
	r.results = append(r.results, f)
	r.mu.Unlock()
}

func (r *recorder) RenderDashboard(f DashboardFrame) {
	r.mu.Lock()
	r.dashboard = append(r.dashboard, f)
	r.mu.Unlock()
}

func (r *recorder) resultsCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *recorder) lastResults() ResultsFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[len(r.results)-1]
}

func (r *recorder) dashboardFrames() []DashboardFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DashboardFrame(nil), r.dashboard...)
}

func ptr(t time.Time) *time.Time { return &t }

func newResults(f live.Fetcher, sess Sessions, clock *fakeClock, r Renderer, opts Options) *ResultsView {
	sched := live.NewScheduler(f, live.NewCache(), logging.Nop())
	return NewResultsView(sched, sess, clock, r, opts, logging.Nop())
}

func waitDone(t *testing.T, c <-chan struct{}) {
	t.Helper()
	select {
	case <-c:
	case <-time.After(2 * time.Second):
		t.Fatal("view did not stop")
	}
}

func TestResultsView_RendersSnapshotAndCountdown(t *testing.T) {
	f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(3, 3)}}
	clock := &fakeClock{now: base}
	rec := &recorder{}
	v := newResults(f, newSessions(true), clock, rec, Options{RefreshInterval: time.Hour, CountdownTick: time.Hour})

	require.NoError(t, v.Mount(context.Background(), 1))
	defer v.Unmount()

	require.Eventually(t, func() bool { return rec.resultsCount() > 0 }, time.Second, 5*time.Millisecond)
	frame := rec.lastResults()
	assert.EqualValues(t, 6, frame.Poll.TotalVotes)
	require.NotNil(t, frame.Countdown.Remaining)
	assert.Equal(t, "0d 1h 1m 5s", frame.Countdown.Remaining.String())
	assert.False(t, frame.Stale)

	cur, ok := v.Current()
	require.True(t, ok)
	assert.EqualValues(t, 6, cur.TotalVotes)
}

func TestResultsView_UnmountStopsRendering(t *testing.T) {
	f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(1, 0)}}
	clock := &fakeClock{now: base}
	rec := &recorder{}
	sess := newSessions(true)
	v := newResults(f, sess, clock, rec, Options{RefreshInterval: 5 * time.Millisecond, CountdownTick: 5 * time.Millisecond})

	require.NoError(t, v.Mount(context.Background(), 1))
	require.Eventually(t, func() bool { return rec.resultsCount() > 3 }, time.Second, 5*time.Millisecond)

	v.Unmount()
	after := rec.resultsCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, rec.resultsCount())
	assert.Zero(t, sess.subscribers())
	assert.ErrorIs(t, v.RefreshNow(), ErrNotMounted)

	v.Unmount()
}

func TestResultsView_MountRules(t *testing.T) {
	f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(1)}}

	anon := newResults(f, newSessions(false), &fakeClock{now: base}, &recorder{}, Options{})
	assert.ErrorIs(t, anon.Mount(context.Background(), 1), session.ErrNotAuthenticated)

	v := newResults(f, newSessions(true), &fakeClock{now: base}, &recorder{}, Options{RefreshInterval: time.Hour})
	require.NoError(t, v.Mount(context.Background(), 1))
	assert.ErrorIs(t, v.Mount(context.Background(), 1), ErrMounted)
	v.Unmount()
	require.NoError(t, v.Mount(context.Background(), 1))
	v.Unmount()
}

func TestResultsView_LogoutUnmounts(t *testing.T) {
	f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(1)}}
	sess := newSessions(true)
	rec := &recorder{}
	v := newResults(f, sess, &fakeClock{now: base}, rec, Options{RefreshInterval: 5 * time.Millisecond, CountdownTick: 5 * time.Millisecond})

	require.NoError(t, v.Mount(context.Background(), 1))
	done := v.Done()
	require.Eventually(t, func() bool { return rec.resultsCount() > 0 }, time.Second, 5*time.Millisecond)

	sess.logout()
	waitDone(t, done)

	n := rec.resultsCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, rec.resultsCount())
	v.Unmount()
}

func TestResultsView_RemountAfterSessionLoss(t *testing.T) {
	f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(1)}}
	sess := newSessions(true)
	rec := &recorder{}
	v := newResults(f, sess, &fakeClock{now: base}, rec, Options{RefreshInterval: 5 * time.Millisecond, CountdownTick: 5 * time.Millisecond})

	require.NoError(t, v.Mount(context.Background(), 1))
	done := v.Done()
	sess.logout()
	waitDone(t, done)
	assert.ErrorIs(t, v.RefreshNow(), ErrNotMounted)

	sess.login()
	require.NoError(t, v.Mount(context.Background(), 2))
	defer v.Unmount()
	id, ok := v.mountedPoll()
	require.True(t, ok)
	assert.EqualValues(t, 2, id)
}

func TestResultsView_StaleWhileFailing(t *testing.T) {
	f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(2, 1), fail}}
	clock := &fakeClock{now: base}
	rec := &recorder{}
	v := newResults(f, newSessions(true), clock, rec, Options{RefreshInterval: 5 * time.Millisecond, CountdownTick: 5 * time.Millisecond})

	require.NoError(t, v.Mount(context.Background(), 1))
	defer v.Unmount()

	require.Eventually(t, func() bool {
		if rec.resultsCount() == 0 {
			return false
		}
		return rec.lastResults().Stale
	}, time.Second, 5*time.Millisecond)

	frame := rec.lastResults()
	assert.EqualValues(t, 3, frame.Poll.TotalVotes, "stale frames keep the last good snapshot")
}

func TestResultsView_CountdownReachesExpiry(t *testing.T) {
	f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(1)}}
	clock := &fakeClock{now: base}
	rec := &recorder{}
	v := newResults(f, newSessions(true), clock, rec, Options{RefreshInterval: time.Hour, CountdownTick: 5 * time.Millisecond})

	require.NoError(t, v.Mount(context.Background(), 1))
	defer v.Unmount()
	require.Eventually(t, func() bool { return rec.resultsCount() > 0 }, time.Second, 5*time.Millisecond)

	clock.Advance(2 * time.Hour)
	require.Eventually(t, func() bool { return rec.lastResults().Countdown.Expired }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Expired", rec.lastResults().Countdown.Label())
}

type fakePolls struct {
	services.PollService
	voteErr error
	votes   [][2]int64
}

func (p *fakePolls) SubmitVote(_ context.Context, pollID, optionID int64) error {
	p.votes = append(p.votes, [2]int64{pollID, optionID})
	return p.voteErr
}

func TestDetailsView_Vote(t *testing.T) {
	ctx := context.Background()

	t.Run("success refreshes at once", func(t *testing.T) {
		f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(3, 2), serve(3, 3)}}
		rec := &recorder{}
		polls := &fakePolls{}
		v := NewDetailsView(newResults(f, newSessions(true), &fakeClock{now: base}, rec, Options{RefreshInterval: time.Hour, CountdownTick: time.Hour}), polls)

		require.NoError(t, v.Mount(ctx, 1))
		defer v.Unmount()
		require.Eventually(t, func() bool { return rec.resultsCount() >= 1 }, time.Second, 5*time.Millisecond)

		require.NoError(t, v.Vote(ctx, 2))
		assert.Equal(t, [][2]int64{{1, 2}}, polls.votes)
		require.Eventually(t, func() bool { return rec.lastResults().Poll.TotalVotes == 6 }, time.Second, 5*time.Millisecond)
	})

	t.Run("already voted leaves results alone", func(t *testing.T) {
		f := &fakeFetcher{script: []func() (*models.PollSnapshot, error){serve(3, 2)}}
		rec := &recorder{}
		polls := &fakePolls{voteErr: &client.VoteError{Kind: client.ErrAlreadyVoted}}
		v := NewDetailsView(newResults(f, newSessions(true), &fakeClock{now: base}, rec, Options{RefreshInterval: time.Hour, CountdownTick: time.Hour}), polls)

		require.NoError(t, v.Mount(ctx, 1))
		defer v.Unmount()
		require.Eventually(t, func() bool { return rec.resultsCount() >= 1 }, time.Second, 5*time.Millisecond)
		before, _ := v.Current()

		err := v.Vote(ctx, 2)
		require.ErrorIs(t, err, client.ErrAlreadyVoted)
		time.Sleep(20 * time.Millisecond)
		assert.EqualValues(t, 1, f.calls.Load(), "no refresh after a rejected vote")
		after, _ := v.Current()
		assert.Equal(t, before, after)
	})

	t.Run("not mounted", func(t *testing.T) {
		v := NewDetailsView(newResults(&fakeFetcher{}, newSessions(true), &fakeClock{now: base}, &recorder{}, Options{}), &fakePolls{})
		assert.ErrorIs(t, v.Vote(ctx, 1), ErrNotMounted)
	})
}

type fakeDashboard struct {
	d     *services.Dashboard
	err   error
	loads int
}

func (f *fakeDashboard) Load(context.Context) (*services.Dashboard, error) {
	f.loads++
	return f.d, f.err
}

func TestDashboardView(t *testing.T) {
	ctx := context.Background()
	created := []models.PollSummary{
		{ID: 1, VoteCount: 4, ExpiryTime: ptr(base.Add(time.Hour))},
		{ID: 2, VoteCount: 2, ExpiryTime: ptr(base.Add(-time.Hour))},
	}

	t.Run("loads once and recomputes stats per tick", func(t *testing.T) {
		svc := &fakeDashboard{d: &services.Dashboard{Created: created, LoadedAt: base}}
		clock := &fakeClock{now: base}
		rec := &recorder{}
		sess := newSessions(true)
		v := NewDashboardView(svc, sess, clock, rec, Options{CountdownTick: 5 * time.Millisecond}, logging.Nop())

		require.NoError(t, v.Mount(ctx))
		require.Eventually(t, func() bool { return len(rec.dashboardFrames()) > 0 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, services.Stats{Total: 2, Active: 1, VotesReceived: 6}, rec.dashboardFrames()[0].Stats)

		clock.Advance(2 * time.Hour)
		require.Eventually(t, func() bool {
			frames := rec.dashboardFrames()
			return frames[len(frames)-1].Stats.Active == 0
		}, time.Second, 5*time.Millisecond)

		v.Unmount()
		assert.Equal(t, 1, svc.loads)
		assert.Zero(t, sess.subscribers())
	})

	t.Run("failed load is not mounted", func(t *testing.T) {
		svc := &fakeDashboard{err: errors.New("boom")}
		v := NewDashboardView(svc, newSessions(true), &fakeClock{now: base}, &recorder{}, Options{}, logging.Nop())
		require.Error(t, v.Mount(ctx))
		waitDone(t, v.Done())
	})

	t.Run("logout stops it", func(t *testing.T) {
		svc := &fakeDashboard{d: &services.Dashboard{Created: created}}
		sess := newSessions(true)
		v := NewDashboardView(svc, sess, &fakeClock{now: base}, &recorder{}, Options{CountdownTick: 5 * time.Millisecond}, logging.Nop())
		require.NoError(t, v.Mount(ctx))
		done := v.Done()
		sess.logout()
		waitDone(t, done)

		sess.login()
		require.NoError(t, v.Mount(ctx), "a view that stopped itself can be mounted again")
		v.Unmount()
		assert.Equal(t, 2, svc.loads)
	})
}
