// Package fakebackend is an in-memory polls REST backend for tests. It
// mirrors the real API's routes, status codes and error bodies closely
// enough to exercise the client end to end.
package fakebackend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type user struct {
	ID       int64
	Username string
	Email    string
	Password string
}

type option struct {
	ID    int64
	Text  string
	Votes int64
}

type poll struct {
	ID        int64
	OwnerID   int64
	Question  string
	Options   []*option
	CreatedAt time.Time
	Expiry    *time.Time
	Closed    bool
	Voters    map[int64]int64
}

// Request is one recorded call.
type Request struct {
	Method    string
	Path      string
	Query     string
	Auth      string
	RequestID string
}

type failure struct {
	status  int
	message string
}

type Backend struct {
	mu       sync.Mutex
	secret   []byte
	users    map[int64]*user
	polls    map[int64]*poll
	nextID   int64
	failures map[string][]failure
	revoked  bool
	requests []Request
	// Hold, when set, is received from before a poll is served, letting a
	// test keep a request in flight.
	Hold chan struct{}
}

func New() *Backend {
	return &Backend{
		secret:   []byte("fakebackend-secret"),
		users:    make(map[int64]*user),
		polls:    make(map[int64]*poll),
		failures: make(map[string][]failure),
	}
}

// Start serves a new backend on an httptest server; the returned URL is the
// API base (".../api").
func Start(t testing.TB) (*Backend, string) {
	t.Helper()
	b := New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv.URL + "/api"
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) AddUser(username, email, password string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &user{ID: b.id(), Username: username, Email: email, Password: password}
	b.users[u.ID] = u
	return u.ID
}

// AddPoll creates a poll and returns its id and its option ids.
func (b *Backend) AddPoll(ownerID int64, question string, options []string, expiry *time.Time) (int64, []int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addPoll(ownerID, question, options, expiry)
}

func (b *Backend) addPoll(ownerID int64, question string, options []string, expiry *time.Time) (int64, []int64) {
	p := &poll{
		ID:        b.id(),
		OwnerID:   ownerID,
		Question:  question,
		CreatedAt: time.Now(),
		Expiry:    expiry,
		Voters:    make(map[int64]int64),
	}
	ids := make([]int64, 0, len(options))
	for _, text := range options {
		o := &option{ID: b.id(), Text: text}
		p.Options = append(p.Options, o)
		ids = append(ids, o.ID)
	}
	b.polls[p.ID] = p
	return p.ID, ids
}

// SetVotes overwrites option tallies in order.
func (b *Backend) SetVotes(pollID int64, counts ...int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.polls[pollID]
	for i, c := range counts {
		if i < len(p.Options) {
			p.Options[i].Votes = c
		}
	}
}

func (b *Backend) ClosePoll(pollID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.polls[pollID].Closed = true
}

func (b *Backend) HasPoll(pollID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.polls[pollID]
	return ok
}

// Fail makes the next request matching method and exact path answer with
// status and message.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	b.failures[key] = append(b.failures[key], failure{status: status, message: message})
}

// RevokeTokens makes every authenticated request answer 401.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked = true
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// CountRequests counts recorded requests with the given method and path.
func (b *Backend) CountRequests(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) takeFailure(r *http.Request) (failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, fs := range b.failures {
		method, path, _ := strings.Cut(key, " ")
		if method != r.Method || r.URL.Path != path || len(fs) == 0 {
			continue
		}
		b.failures[key] = fs[1:]
		return fs[0], true
	}
	return failure{}, false
}
