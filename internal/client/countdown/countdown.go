// Package countdown derives a poll's time-left state from its expiry, the
// owner's close flag and the current time. Derive is pure; callers re-run it
// on every tick instead of decrementing anything.
package countdown

import (
	"fmt"
	"time"
)

const ExpiredLabel = "Expired"

// Remaining is the time left, floored per unit.
type Remaining struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
	Total   time.Duration
}

func (r Remaining) String() string {
	return fmt.Sprintf("%dd %dh %dm %ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}

// State is nil-Remaining exactly when Expired. A poll without expiry that is
// still open has neither: it never runs out.
type State struct {
	Remaining *Remaining
	Expired   bool
}

// Open reports whether the poll still accepts votes.
func (s State) Open() bool { return !s.Expired }

// Label renders the state for display.
func (s State) Label() string {
	switch {
	case s.Expired:
		return ExpiredLabel
	case s.Remaining == nil:
		return "No expiry"
	default:
		return s.Remaining.String()
	}
}

func Derive(expiry *time.Time, closedByOwner bool, now time.Time) State {
	if closedByOwner {
		return State{Expired: true}
	}
	if expiry == nil {
		return State{}
	}

	left := expiry.Sub(now)
	if left <= 0 {
		return State{Expired: true}
	}

	secs := int64(left / time.Second)
	return State{Remaining: &Remaining{
		Days:    secs / 86400,
		Hours:   secs % 86400 / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
		Total:   left,
	}}
}
