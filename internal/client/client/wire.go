package client

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/timex"
)

// wireTime accepts null, "", RFC 3339 and the backend's zone-less local
// timestamps.
type wireTime struct {
	t *time.Time
}

func (w *wireTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		w.t = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		w.t = nil
		return nil
	}
	t, err := timex.ParseTimestamp(s, time.Local)
	if err != nil {
		return err
	}
	w.t = &t
	return nil
}

func (w wireTime) value() time.Time {
	if w.t == nil {
		return time.Time{}
	}
	return *w.t
}

// author is either a bare username or a user object.
type author string

func (a *author) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*a = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = author(s)
		return nil
	default:
		var u struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(b, &u); err != nil {
			return err
		}
		*a = author(u.Username)
		return nil
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse accepts both the flat {token,id,username,email} shape and a
// nested {token,user:{...}} one.
type loginResponse struct {
	Token    string          `json:"token"`
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
	User     *models.Profile `json:"user"`
}

func (r loginResponse) profile() models.Profile {
	if r.User != nil {
		return *r.User
	}
	return models.Profile{ID: r.ID, Username: r.Username, Email: r.Email, Role: r.Role}
}

type optionDTO struct {
	ID         int64  `json:"id"`
	OptionText string `json:"optionText"`
	Text       string `json:"text"`
	VoteCount  int64  `json:"voteCount"`
}

type pollDTO struct {
	ID         int64       `json:"id"`
	Question   string      `json:"question"`
	Options    []optionDTO `json:"options"`
	CreatedBy  author      `json:"createdBy"`
	CreatedAt  wireTime    `json:"createdAt"`
	ExpiryTime wireTime    `json:"expiryTime"`
	Closed     bool        `json:"closed"`
	HasVoted   bool        `json:"hasVoted"`
	TotalVotes int64       `json:"totalVotes"`
	VoteCount  *int64      `json:"voteCount"`
}

func (p pollDTO) snapshot() models.PollSnapshot {
	opts := make([]models.Option, 0, len(p.Options))
	for _, o := range p.Options {
		text := o.OptionText
		if text == "" {
			text = o.Text
		}
		opts = append(opts, models.Option{ID: o.ID, Text: text, VoteCount: o.VoteCount})
	}
	s := models.PollSnapshot{
		ID:                    p.ID,
		Question:              p.Question,
		Options:               opts,
		CreatedBy:             string(p.CreatedBy),
		CreatedAt:             p.CreatedAt.value(),
		ExpiryTime:            p.ExpiryTime.t,
		ClosedByOwner:         p.Closed,
		HasVotedByCurrentUser: p.HasVoted,
	}
	return s.Normalize()
}

func (p pollDTO) summary() models.PollSummary {
	votes := p.TotalVotes
	if len(p.Options) > 0 {
		votes = p.snapshot().TotalVotes
	}
	if p.VoteCount != nil {
		votes = *p.VoteCount
	}
	return models.PollSummary{
		ID:         p.ID,
		Question:   p.Question,
		CreatedBy:  string(p.CreatedBy),
		CreatedAt:  p.CreatedAt.value(),
		ExpiryTime: p.ExpiryTime.t,
		Closed:     p.Closed,
		VoteCount:  votes,
	}
}

func summaries(in []pollDTO) []models.PollSummary {
	out := make([]models.PollSummary, 0, len(in))
	for _, p := range in {
		out = append(out, p.summary())
	}
	return out
}

type createPollBody struct {
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	ExpiryTime string   `json:"expiryTime"`
	UserID     int64    `json:"userId"`
}

type idRef struct {
	ID int64 `json:"id"`
}

type voteBody struct {
	Option idRef `json:"option"`
	User   idRef `json:"user"`
}

// errorBody covers {message}, {error} and {errors:{field:msg}} shapes.
type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func (e errorBody) text() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Errors) > 0 {
		fields := make([]string, 0, len(e.Errors))
		for f := range e.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, f+": "+e.Errors[f])
		}
		return strings.Join(parts, "; ")
	}
	return e.Error
}
