// Package guard decides whether a location needing a signed-in user may be
// entered right now.
package guard

import (
	"context"

	"github.com/dmitrijs2005/electica/internal/client/session"
)

const (
	LoginPath      = "/login"
	DefaultLanding = "/dashboard"
)

type Outcome int

const (
	// Pending means the session is still being restored: render a neutral
	// placeholder, neither the content nor a redirect.
	Pending Outcome = iota
	Admit
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Admit:
		return "admit"
	case Redirect:
		return "redirect"
	default:
		return "pending"
	}
}

type Decision struct {
	Outcome    Outcome
	RedirectTo string
	// From is the originally requested location, kept for the return trip
	// after login.
	From string
}

type Sessions interface {
	Snapshot() session.Snapshot
	Ready() <-chan struct{}
}

type Guard struct {
	sessions Sessions
}

func New(s Sessions) *Guard {
	return &Guard{sessions: s}
}

// Check decides from the current session state without blocking.
func (g *Guard) Check(location string) Decision {
	return decide(g.sessions.Snapshot(), location)
}

// Await waits for the session to resolve, then decides.
func (g *Guard) Await(ctx context.Context, location string) (Decision, error) {
	select {
	case <-g.sessions.Ready():
		return g.Check(location), nil
	case <-ctx.Done():
		return Decision{Outcome: Pending, From: location}, ctx.Err()
	}
}

func decide(snap session.Snapshot, location string) Decision {
	switch {
	case snap.Loading():
		return Decision{Outcome: Pending, From: location}
	case snap.Authenticated():
		return Decision{Outcome: Admit, From: location}
	default:
		return Decision{Outcome: Redirect, RedirectTo: LoginPath, From: location}
	}
}

// ReturnTo is where to go after a successful login.
func ReturnTo(d Decision) string {
	if d.From == "" || d.From == LoginPath {
		return DefaultLanding
	}
	return d.From
}
