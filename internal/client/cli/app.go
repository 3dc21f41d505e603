package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/config"
	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/guard"
	"github.com/dmitrijs2005/electica/internal/client/live"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/services"
	"github.com/dmitrijs2005/electica/internal/client/session"
	"github.com/dmitrijs2005/electica/internal/client/views"
	"github.com/dmitrijs2005/electica/internal/logging"
)

// Sessions is the session store as the terminal client uses it.
type Sessions interface {
	Snapshot() session.Snapshot
	Ready() <-chan struct{}
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, in models.SignupInput) error
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, patch models.ProfilePatch) error
}

type App struct {
	config    *config.Config
	api       client.Client
	sessions  Sessions
	guard     *guard.Guard
	polls     services.PollService
	dashboard services.DashboardService
	profile   services.ProfileService
	sched     *live.Scheduler
	clock     countdown.Clock
	render    *textRenderer
	logger    logging.Logger
	reader    *bufio.Reader
	out       io.Writer

	// pending is the command line that was bounced to the login prompt and
	// bounced is the guard decision that sent it there.
	pending string
	bounced guard.Decision
}

// NewApp wires the services and views over api and sessions. Commands read
// from in and write to out; clearScreen makes live views redraw in place.
func NewApp(c *config.Config, api client.Client, sessions Sessions, logger logging.Logger, in io.Reader, out io.Writer, clearScreen bool) *App {
	clock := countdown.SystemClock{}
	return &App{
		config:    c,
		api:       api,
		sessions:  sessions,
		guard:     guard.New(sessions),
		polls:     services.NewPollService(api, sessions, clock, logger),
		dashboard: services.NewDashboardService(api, sessions, clock),
		profile:   services.NewProfileService(api, sessions, logger),
		sched:     live.NewScheduler(api, live.NewCache(), logger),
		clock:     clock,
		render:    &textRenderer{w: out, clear: clearScreen},
		logger:    logger,
		reader:    bufio.NewReader(in),
		out:       out,
	}
}

func (a *App) viewOptions() views.Options {
	return views.Options{RefreshInterval: a.config.RefreshInterval, CountdownTick: a.config.CountdownTick}
}

func (a *App) isLoggedIn() bool {
	return a.sessions.Snapshot().Authenticated()
}

func (a *App) getStatus() string {
	snap := a.sessions.Snapshot()
	if snap.Authenticated() {
		return snap.Profile.Username
	}
	return snap.Status.String()
}

// Run blocks in the REPL until the user exits, input ends or ctx is done.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Polls client (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// admit runs the route guard for location. On a redirect it prints the login
// hint and remembers line so it can be replayed after login.
func (a *App) admit(ctx context.Context, location, line string) bool {
	d, err := a.guard.Await(ctx, location)
	if err != nil {
		return false
	}
	switch d.Outcome {
	case guard.Admit:
		return true
	case guard.Redirect:
		a.pending = line
		a.bounced = d
		fmt.Fprintf(a.out, "You need to log in first (type 'login'); '%s' will run afterwards.\n", line)
	}
	return false
}

// resume hands back the command bounced to the login prompt, if any.
func (a *App) resume() string {
	line := a.pending
	a.pending = ""
	a.bounced = guard.Decision{}
	return line
}

func (a *App) fail(err error) error {
	fmt.Fprintln(a.out, "Error:", client.UserMessage(err))
	return err
}
