// Package live keeps poll snapshots fresh by polling the backend.
//
// A Cache holds the latest snapshot per poll; every accepted response
// replaces the previous snapshot wholesale. A Scheduler starts one Handle
// per mounted view. Each Handle owns a goroutine that fetches immediately,
// then on a fixed interval and on demand.
package live

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/electica/internal/client/models"
)

// Fetcher performs a single snapshot request.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error)
}

type entry struct {
	snap  *models.PollSnapshot
	users int
}

type Cache struct {
	mu      sync.RWMutex
	entries map[int64]*entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[int64]*entry)}
}

// Replace normalizes s and stores it as the current snapshot for its poll.
func (c *Cache) Replace(s models.PollSnapshot) models.PollSnapshot {
	n := s.Normalize()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[n.ID]
	if !ok {
		e = &entry{}
		c.entries[n.ID] = e
	}
	e.snap = &n
	return n.Normalize()
}

func (c *Cache) Get(pollID int64) (models.PollSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[pollID]
	if !ok || e.snap == nil {
		return models.PollSnapshot{}, false
	}
	return e.snap.Normalize(), true
}

// Discard drops the snapshot regardless of who holds it.
func (c *Cache) Discard(pollID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pollID)
}

// Refresh performs a one-shot fetch outside any schedule and stores the
// result. It does not order itself against running handles: whichever
// response is applied last wins.
func (c *Cache) Refresh(ctx context.Context, f Fetcher, pollID, viewerID int64) (models.PollSnapshot, error) {
	s, err := f.FetchSnapshot(ctx, pollID, viewerID)
	if err != nil {
		return models.PollSnapshot{}, err
	}
	return c.Replace(*s), nil
}

func (c *Cache) acquire(pollID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pollID]
	if !ok {
		e = &entry{}
		c.entries[pollID] = e
	}
	e.users++
}

// release drops the entry once its last handle is gone.
func (c *Cache) release(pollID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pollID]
	if !ok {
		return
	}
	e.users--
	if e.users <= 0 {
		delete(c.entries, pollID)
	}
}

// apply stores s unless accept reports false; the check runs under the
// cache lock so it cannot interleave with a concurrent stop.
func (c *Cache) apply(s models.PollSnapshot, accept func() bool) (models.PollSnapshot, bool) {
	n := s.Normalize()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !accept() {
		return models.PollSnapshot{}, false
	}
	e, ok := c.entries[n.ID]
	if !ok {
		e = &entry{}
		c.entries[n.ID] = e
	}
	e.snap = &n
	return n.Normalize(), true
}
