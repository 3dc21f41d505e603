package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/session"
	"github.com/dmitrijs2005/electica/internal/logging"
)

const DefaultPollLifetime = 7 * 24 * time.Hour

var ErrInvalidInput = errors.New("invalid input")

// Sessions is what the services read from the session store.
type Sessions interface {
	Snapshot() session.Snapshot
	UpdateProfile(ctx context.Context, patch models.ProfilePatch) error
}

func currentUser(s Sessions) (int64, error) {
	snap := s.Snapshot()
	if !snap.Authenticated() {
		return 0, session.ErrNotAuthenticated
	}
	return snap.Profile.ID, nil
}

type StatusFilter int

const (
	FilterAll StatusFilter = iota
	FilterActive
	FilterClosed
)

func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch strings.ToLower(s) {
	case "", "all":
		return FilterAll, true
	case "active", "open":
		return FilterActive, true
	case "closed", "expired":
		return FilterClosed, true
	}
	return FilterAll, false
}

type Filter struct {
	Status StatusFilter
	Search string
}

type PollService interface {
	List(ctx context.Context, f Filter) ([]models.PollSummary, error)
	Get(ctx context.Context, pollID int64) (*models.PollSnapshot, error)
	Create(ctx context.Context, in models.CreatePollInput) (*models.PollSummary, error)
	Close(ctx context.Context, pollID int64) error
	Delete(ctx context.Context, pollID int64) error
	SubmitVote(ctx context.Context, pollID, optionID int64) error
}

type pollService struct {
	api      client.Client
	sessions Sessions
	clock    countdown.Clock
	logger   logging.Logger
}

func NewPollService(api client.Client, sessions Sessions, clock countdown.Clock, logger logging.Logger) PollService {
	return &pollService{api: api, sessions: sessions, clock: clock, logger: logger}
}

// List returns the polls matching f. Active/closed is decided with the
// same rule as the countdown, against the injected clock.
func (s *pollService) List(ctx context.Context, f Filter) ([]models.PollSummary, error) {
	polls, err := s.api.ListPolls(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := polls[:0]
	for _, p := range polls {
		if search != "" && !strings.Contains(strings.ToLower(p.Question), search) {
			continue
		}
		open := countdown.Derive(p.ExpiryTime, p.Closed, now).Open()
		switch {
		case f.Status == FilterActive && !open,
			f.Status == FilterClosed && open:
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *pollService) Get(ctx context.Context, pollID int64) (*models.PollSnapshot, error) {
	uid, err := currentUser(s.sessions)
	if err != nil {
		return nil, err
	}
	return s.api.FetchSnapshot(ctx, pollID, uid)
}

func (s *pollService) Create(ctx context.Context, in models.CreatePollInput) (*models.PollSummary, error) {
	uid, err := currentUser(s.sessions)
	if err != nil {
		return nil, err
	}

	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	options := make([]string, 0, len(in.Options))
	for _, o := range in.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if len(options) < 2 {
		return nil, fmt.Errorf("%w: at least 2 options are required", ErrInvalidInput)
	}

	now := s.clock.Now()
	expiry := now.Add(DefaultPollLifetime)
	if in.ExpiryTime != nil {
		expiry = *in.ExpiryTime
	}
	if !expiry.After(now) {
		return nil, fmt.Errorf("%w: expiry time must be in the future", ErrInvalidInput)
	}

	created, err := s.api.CreatePoll(ctx, models.CreatePollRequest{
		Question:   question,
		Options:    options,
		ExpiryTime: expiry,
		UserID:     uid,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "poll created", "poll_id", created.ID, "options", len(options))
	return created, nil
}

func (s *pollService) Close(ctx context.Context, pollID int64) error {
	uid, err := currentUser(s.sessions)
	if err != nil {
		return err
	}
	if err := s.api.ClosePoll(ctx, pollID, uid); err != nil {
		return err
	}
	s.logger.Info(ctx, "poll closed", "poll_id", pollID)
	return nil
}

func (s *pollService) Delete(ctx context.Context, pollID int64) error {
	uid, err := currentUser(s.sessions)
	if err != nil {
		return err
	}
	if err := s.api.DeletePoll(ctx, pollID, uid); err != nil {
		return err
	}
	s.logger.Info(ctx, "poll deleted", "poll_id", pollID)
	return nil
}

// SubmitVote is a one-shot write; it leaves any cached snapshot alone.
// Callers refresh on success.
func (s *pollService) SubmitVote(ctx context.Context, pollID, optionID int64) error {
	uid, err := currentUser(s.sessions)
	if err != nil {
		return err
	}
	if err := s.api.Vote(ctx, pollID, optionID, uid); err != nil {
		s.logger.Info(ctx, "vote rejected", "poll_id", pollID, "option_id", optionID, "error", err)
		return err
	}
	return nil
}
