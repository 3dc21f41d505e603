package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/services"
	"github.com/dmitrijs2005/electica/internal/timex"
)

var errUsage = errors.New("usage")

func (a *App) usage(text string) error {
	fmt.Fprintln(a.out, "Usage:", text)
	return errUsage
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// Polls lists polls, optionally filtered by status and a search text.
func (a *App) Polls(ctx context.Context, args []string) error {
	line := strings.TrimSpace("polls " + strings.Join(args, " "))
	if !a.admit(ctx, "/polls", line) {
		return nil
	}

	var f services.Filter
	if len(args) > 0 {
		if st, ok := services.ParseStatusFilter(args[0]); ok {
			f.Status = st
			args = args[1:]
		}
	}
	f.Search = strings.Join(args, " ")

	polls, err := a.polls.List(ctx, f)
	if err != nil {
		return a.fail(err)
	}
	writeSummaries(a.out, polls, a.clock.Now())
	return nil
}

// Show prints one poll with its current results.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("show <id>")
	}
	id, ok := parseID(args[0])
	if !ok {
		return a.usage("show <id>")
	}
	if !a.admit(ctx, fmt.Sprintf("/polls/%d", id), "show "+args[0]) {
		return nil
	}

	snap, err := a.polls.Get(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	now := a.clock.Now()
	writeResults(a.out, *snap, countdown.Derive(snap.ExpiryTime, snap.ClosedByOwner, now), now)
	return nil
}

// Vote casts a vote and prints the refreshed results.
func (a *App) Vote(ctx context.Context, args []string) error {
	const text = "vote <id> <optionId>"
	if len(args) != 2 {
		return a.usage(text)
	}
	pollID, ok1 := parseID(args[0])
	optionID, ok2 := parseID(args[1])
	if !ok1 || !ok2 {
		return a.usage(text)
	}
	if !a.admit(ctx, fmt.Sprintf("/polls/%d", pollID), "vote "+args[0]+" "+args[1]) {
		return nil
	}

	if err := a.polls.SubmitVote(ctx, pollID, optionID); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.out, "Vote recorded.")

	snap := a.sessions.Snapshot()
	if !snap.Authenticated() {
		return nil
	}
	fresh, err := a.sched.Cache().Refresh(ctx, a.api, pollID, snap.Profile.ID)
	if err != nil {
		return a.fail(err)
	}
	now := a.clock.Now()
	writeResults(a.out, fresh, countdown.Derive(fresh.ExpiryTime, fresh.ClosedByOwner, now), now)
	return nil
}

// Create asks for a question, options and an optional expiry, then creates
// the poll.
func (a *App) Create(ctx context.Context) error {
	if !a.admit(ctx, "/polls/new", "create") {
		return nil
	}

	question, err := getSimpleText(a.reader, "Question", a.out)
	if err != nil {
		return err
	}
	options, err := GetLines(a.reader, "Options, one per line", a.out)
	if err != nil {
		return err
	}
	expiryText, err := getSimpleText(a.reader, "Expires (e.g. 48h or 2025-12-31 18:00:00; empty for 7 days)", a.out)
	if err != nil {
		return err
	}

	in := models.CreatePollInput{Question: question, Options: options}
	if expiryText != "" {
		expiry, err := parseExpiry(expiryText, a.clock.Now())
		if err != nil {
			fmt.Fprintln(a.out, "Error: cannot read expiry:", err)
			return err
		}
		in.ExpiryTime = &expiry
	}

	created, err := a.polls.Create(ctx, in)
	if errors.Is(err, services.ErrInvalidInput) {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Poll #%d created.\n", created.ID)
	return nil
}

// parseExpiry accepts a duration from now or a local timestamp.
func parseExpiry(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	return timex.ParseTimestamp(s, time.Local)
}

func (a *App) Close(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("close <id>")
	}
	id, ok := parseID(args[0])
	if !ok {
		return a.usage("close <id>")
	}
	if !a.admit(ctx, fmt.Sprintf("/polls/%d", id), "close "+args[0]) {
		return nil
	}

	if err := a.polls.Close(ctx, id); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Poll #%d closed.\n", id)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("delete <id>")
	}
	id, ok := parseID(args[0])
	if !ok {
		return a.usage("delete <id>")
	}
	if !a.admit(ctx, fmt.Sprintf("/polls/%d", id), "delete "+args[0]) {
		return nil
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete poll #%d for good? Type 'yes' to confirm", id), a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Fprintln(a.out, "Not deleted.")
		return errAborted
	}

	if err := a.polls.Delete(ctx, id); err != nil {
		return a.fail(err)
	}
	a.sched.Cache().Discard(id)
	fmt.Fprintf(a.out, "Poll #%d deleted.\n", id)
	return nil
}

