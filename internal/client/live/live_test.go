package live

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
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/logging"
)

type fetchFunc func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error)

func (f fetchFunc) FetchSnapshot(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
	return f(ctx, pollID, viewerID)
}

func snapshot(id int64, counts ...int64) *models.PollSnapshot {
	s := &models.PollSnapshot{ID: id, Question: "Q"}
	for i, c := range counts {
		s.Options = append(s.Options, models.Option{ID: int64(i + 1), VoteCount: c})
	}
	return s
}

// updates collects onUpdate calls.
type updates struct {
	mu   sync.Mutex
	got  []models.PollSnapshot
	seen chan struct{}
}

func newUpdates() *updates { return &updates{seen: make(chan struct{}, 1000)} }

func (u *updates) add(s models.PollSnapshot) {
	u.mu.Lock()
	u.got = append(u.got, s)
	u.mu.Unlock()
	u.seen <- struct{}{}
}

func (u *updates) len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.got)
}

func (u *updates) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-u.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for update %d", i+1)
		}
	}
}

func TestCache_ReplaceWholesaleAndRecomputeTotal(t *testing.T) {
	c := NewCache()

	first := *snapshot(1, 3, 2)
	first.TotalVotes = 42
	got := c.Replace(first)
	assert.EqualValues(t, 5, got.TotalVotes)

	c.Replace(*snapshot(1, 3, 3))
	cur, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, []int64{3, 3}, []int64{cur.Options[0].VoteCount, cur.Options[1].VoteCount})
	assert.EqualValues(t, 6, cur.TotalVotes)

	cur.Options[0].VoteCount = 100
	again, _ := c.Get(1)
	assert.EqualValues(t, 3, again.Options[0].VoteCount, "Get returns a copy")

	c.Discard(1)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestCache_Refresh(t *testing.T) {
	c := NewCache()
	f := fetchFunc(func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
		assert.EqualValues(t, 7, viewerID)
		return snapshot(pollID, 1, 1), nil
	})

	s, err := c.Refresh(context.Background(), f, 3, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.TotalVotes)

	boom := &client.FetchError{Kind: client.ErrNotFound}
	_, err = c.Refresh(context.Background(), fetchFunc(func(context.Context, int64, int64) (*models.PollSnapshot, error) {
		return nil, boom
	}), 3, 7)
	require.ErrorIs(t, err, client.ErrNotFound)

	cur, ok := c.Get(3)
	require.True(t, ok, "failed refresh keeps the last snapshot")
	assert.EqualValues(t, 2, cur.TotalVotes)
}

func TestScheduler_ImmediateFetchThenInterval(t *testing.T) {
	var calls atomic.Int32
	f := fetchFunc(func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
		n := calls.Add(1)
		return snapshot(pollID, int64(n), 1), nil
	})
	cache := NewCache()
	s := NewScheduler(f, cache, logging.Nop())
	u := newUpdates()

	h := s.Start(context.Background(), 5, 1, 10*time.Millisecond, u.add)
	u.wait(t, 3)
	h.Stop()

	assert.GreaterOrEqual(t, u.len(), 3)
	u.mu.Lock()
	first := u.got[0]
	u.mu.Unlock()
	assert.EqualValues(t, 1, first.Options[0].VoteCount)
	assert.EqualValues(t, 2, first.TotalVotes)
	for _, got := range u.got {
		assert.Equal(t, models.SumVotes(got.Options), got.TotalVotes)
	}

	_, ok := cache.Get(5)
	assert.False(t, ok, "snapshot discarded when the last handle stops")
}

func TestScheduler_FailureMarksStaleAndKeepsGoing(t *testing.T) {
	var calls atomic.Int32
	f := fetchFunc(func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
		switch calls.Add(1) {
		case 2, 3:
			return nil, &client.FetchError{Kind: client.ErrNetworkFailure, Err: errors.New("refused")}
		}
		return snapshot(pollID, 1), nil
	})
	s := NewScheduler(f, NewCache(), logging.Nop())
	u := newUpdates()

	h := s.Start(context.Background(), 1, 1, 5*time.Millisecond, u.add)
	defer h.Stop()

	u.wait(t, 1)
	require.Eventually(t, h.Stale, time.Second, time.Millisecond)
	u.wait(t, 1)
	assert.False(t, h.Stale(), "a later success clears staleness")
	assert.GreaterOrEqual(t, calls.Load(), int32(4))
}

func TestScheduler_StopDiscardsInFlightResponse(t *testing.T) {
	var calls atomic.Int32
	inFlight := make(chan context.Context, 1)
	release := make(chan struct{})
	f := fetchFunc(func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
		if calls.Add(1) == 1 {
			return snapshot(pollID, 1), nil
		}
		inFlight <- ctx
		<-release
		// The response arrives after cancellation anyway.
		return snapshot(pollID, 99), nil
	})
	cache := NewCache()
	s := NewScheduler(f, cache, logging.Nop())
	u := newUpdates()

	h := s.Start(context.Background(), 1, 1, time.Hour, u.add)
	u.wait(t, 1)
	h.RefreshNow()
	reqCtx := <-inFlight

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()

	select {
	case <-reqCtx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("request context not canceled by Stop")
	}
	close(release)
	<-stopped

	assert.Equal(t, 1, u.len(), "no update after Stop")
	_, ok := cache.Get(1)
	assert.False(t, ok)

	h.Stop()
	h.RefreshNow()
}

func TestScheduler_RefreshNowCoalesces(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	f := fetchFunc(func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
		if calls.Add(1) == 1 {
			<-gate
		}
		return snapshot(pollID, 1), nil
	})
	s := NewScheduler(f, NewCache(), logging.Nop())
	u := newUpdates()

	h := s.Start(context.Background(), 1, 1, time.Hour, u.add)
	defer h.Stop()

	for i := 0; i < 5; i++ {
		h.RefreshNow()
	}
	close(gate)
	u.wait(t, 2)

	assert.Never(t, func() bool { return calls.Load() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())
}

func TestScheduler_ParentContextEndsLoop(t *testing.T) {
	f := fetchFunc(func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
		return snapshot(pollID, 1), nil
	})
	s := NewScheduler(f, NewCache(), logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	h := s.Start(ctx, 1, 1, 5*time.Millisecond, nil)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
	h.Stop()
}

func TestScheduler_SharedPollKeepsEntryUntilLastStop(t *testing.T) {
	f := fetchFunc(func(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
		return snapshot(pollID, 2), nil
	})
	cache := NewCache()
	s := NewScheduler(f, cache, logging.Nop())
	u1, u2 := newUpdates(), newUpdates()

	h1 := s.Start(context.Background(), 1, 1, time.Hour, u1.add)
	h2 := s.Start(context.Background(), 1, 2, time.Hour, u2.add)
	u1.wait(t, 1)
	u2.wait(t, 1)

	h1.Stop()
	_, ok := cache.Get(1)
	assert.True(t, ok)

	h2.Stop()
	_, ok = cache.Get(1)
	assert.False(t, ok)
}
