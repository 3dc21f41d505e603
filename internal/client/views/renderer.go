package views

import (
	"time"

	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/services"
	"github.com/dmitrijs2005/electica/internal/client/session"
)

// ResultsFrame is everything needed to draw a poll's results once.
type ResultsFrame struct {
	Poll      models.PollSnapshot
	Countdown countdown.State
	// Stale is set while the most recent refresh has failed.
	Stale bool
	Now   time.Time
}

type DashboardFrame struct {
	Dashboard services.Dashboard
	Stats     services.Stats
	Now       time.Time
}

// Renderer draws frames. Calls for one view never overlap.
type Renderer interface {
	RenderResults(f ResultsFrame)
	RenderDashboard(f DashboardFrame)
}

// Sessions is the part of the session store views watch.
type Sessions interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}
