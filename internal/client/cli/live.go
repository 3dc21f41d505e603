package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/views"
)

// untilEnter watches done while the user is in a live view and tells them
// when the view stopped on its own.
func (a *App) untilEnter(done <-chan struct{}, stop <-chan struct{}) {
	select {
	case <-done:
		if !a.isLoggedIn() {
			a.render.note("Your session has ended. Press Enter to go back.")
		}
	case <-stop:
	}
}

// Watch shows live results for a poll until the user presses Enter. Typing
// an option ID while watching votes for it.
func (a *App) Watch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("watch <id>")
	}
	id, ok := parseID(args[0])
	if !ok {
		return a.usage("watch <id>")
	}
	if !a.admit(ctx, fmt.Sprintf("/polls/%d/results", id), "watch "+args[0]) {
		return nil
	}

	results := views.NewResultsView(a.sched, a.sessions, a.clock, a.render, a.viewOptions(), a.logger)
	details := views.NewDetailsView(results, a.polls)
	if err := details.Mount(ctx, id); err != nil {
		return a.fail(err)
	}
	defer details.Unmount()

	stop := make(chan struct{})
	defer close(stop)
	go a.untilEnter(details.Done(), stop)

	for {
		line, err := readLine(a.reader)
		if err != nil || line == "" {
			return nil
		}
		select {
		case <-details.Done():
			return nil
		default:
		}

		optionID, ok := parseID(line)
		if !ok {
			a.render.note("Enter an option ID, or press Enter to go back.")
			continue
		}
		if err := details.Vote(ctx, optionID); err != nil {
			a.render.note("Error:", client.UserMessage(err))
			continue
		}
		a.render.note("Vote recorded.")
	}
}

// Dashboard shows the user's polls and stats until the user presses Enter.
func (a *App) Dashboard(ctx context.Context) error {
	if !a.admit(ctx, "/dashboard", "dashboard") {
		return nil
	}

	view := views.NewDashboardView(a.dashboard, a.sessions, a.clock, a.render, a.viewOptions(), a.logger)
	if err := view.Mount(ctx); err != nil {
		return a.fail(err)
	}
	defer view.Unmount()

	stop := make(chan struct{})
	defer close(stop)
	go a.untilEnter(view.Done(), stop)

	_, _ = readLine(a.reader)
	return nil
}
