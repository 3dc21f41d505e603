package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/models"
)

type Stats struct {
	Total         int
	Active        int
	VotesReceived int64
}

// ComputeStats summarises the user's own polls as of now.
func ComputeStats(created []models.PollSummary, now time.Time) Stats {
	st := Stats{Total: len(created)}
	for _, p := range created {
		if countdown.Derive(p.ExpiryTime, p.Closed, now).Open() {
			st.Active++
		}
		st.VotesReceived += p.VoteCount
	}
	return st
}

type Dashboard struct {
	Created  []models.PollSummary
	Voted    []models.PollSummary
	Stats    Stats
	LoadedAt time.Time
}

type DashboardService interface {
	Load(ctx context.Context) (*Dashboard, error)
}

type dashboardService struct {
	api      client.Client
	sessions Sessions
	clock    countdown.Clock
}

func NewDashboardService(api client.Client, sessions Sessions, clock countdown.Clock) DashboardService {
	return &dashboardService{api: api, sessions: sessions, clock: clock}
}

// Load fetches the user's own polls and the polls they voted on in
// parallel; either failure fails the whole load.
func (s *dashboardService) Load(ctx context.Context) (*Dashboard, error) {
	uid, err := currentUser(s.sessions)
	if err != nil {
		return nil, err
	}

	var created, voted []models.PollSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		created, err = s.api.MyPolls(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		voted, err = s.api.VotedPolls(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	return &Dashboard{
		Created:  created,
		Voted:    voted,
		Stats:    ComputeStats(created, now),
		LoadedAt: now,
	}, nil
}
