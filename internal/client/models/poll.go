package models

import (
	"slices"
	"time"
)

type Option struct {
	ID        int64
	Text      string
	VoteCount int64
}

// PollSnapshot is the full state of one poll as last fetched.
type PollSnapshot struct {
	ID                    int64
	Question              string
	Options               []Option
	CreatedBy             string
	CreatedAt             time.Time
	ExpiryTime            *time.Time
	ClosedByOwner         bool
	HasVotedByCurrentUser bool
	TotalVotes            int64
}

// Normalize returns a copy that shares no memory with s and whose
// TotalVotes is the sum of the option counts.
func (s PollSnapshot) Normalize() PollSnapshot {
	out := s
	out.Options = slices.Clone(s.Options)
	if s.ExpiryTime != nil {
		exp := *s.ExpiryTime
		out.ExpiryTime = &exp
	}
	out.TotalVotes = SumVotes(out.Options)
	return out
}

// Option returns the option with the given id.
func (s PollSnapshot) Option(id int64) (Option, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func SumVotes(options []Option) int64 {
	var total int64
	for _, o := range options {
		total += o.VoteCount
	}
	return total
}

// PollSummary is a list item from the poll listings.
type PollSummary struct {
	ID         int64
	Question   string
	CreatedBy  string
	CreatedAt  time.Time
	ExpiryTime *time.Time
	Closed     bool
	VoteCount  int64
}

type CreatePollInput struct {
	Question   string
	Options    []string
	ExpiryTime *time.Time
}

// CreatePollRequest is what the backend receives for a new poll.
type CreatePollRequest struct {
	Question   string
	Options    []string
	ExpiryTime time.Time
	UserID     int64
}
