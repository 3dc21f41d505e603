package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/electica/internal/client/countdown"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/views"
)

const barWidth = 30

// textRenderer draws views as plain text. With clear set, every frame
// starts from a cleared screen so live views redraw in place.
type textRenderer struct {
	mu    sync.Mutex
	w     io.Writer
	clear bool
}

var _ views.Renderer = (*textRenderer)(nil)

func (r *textRenderer) RenderResults(f views.ResultsFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearScreen()
	writeResults(r.w, f.Poll, f.Countdown, f.Now)
	if f.Stale {
		fmt.Fprintln(r.w, "(connection problem, showing last known results)")
	}
	fmt.Fprintln(r.w, "Enter an option ID to vote, or press Enter to go back.")
}

func (r *textRenderer) RenderDashboard(f views.DashboardFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearScreen()

	d := f.Dashboard
	fmt.Fprintf(r.w, "Dashboard (loaded %s)\n\n", humanize.RelTime(d.LoadedAt, f.Now, "ago", "from now"))
	fmt.Fprintf(r.w, "Polls created: %d   Active: %d   Votes received: %s\n\n",
		f.Stats.Total, f.Stats.Active, humanize.Comma(f.Stats.VotesReceived))

	fmt.Fprintln(r.w, "My polls")
	writeSummaries(r.w, d.Created, f.Now)
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "Voted on")
	writeSummaries(r.w, d.Voted, f.Now)
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "Press Enter to go back.")
}

func (r *textRenderer) clearScreen() {
	if r.clear {
		fmt.Fprint(r.w, "\033[H\033[2J")
	}
}

func writeResults(w io.Writer, p models.PollSnapshot, cd countdown.State, now time.Time) {
	fmt.Fprintf(w, "#%d %s\n", p.ID, p.Question)
	if p.CreatedBy != "" {
		fmt.Fprintf(w, "by %s, %s\n", p.CreatedBy, created(p.CreatedAt, now))
	}
	fmt.Fprintf(w, "Status: %s\n\n", statusLabel(cd))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, o := range p.Options {
		share := 0.0
		if p.TotalVotes > 0 {
			share = float64(o.VoteCount) / float64(p.TotalVotes)
		}
		fill := int(share*barWidth + 0.5)
		fmt.Fprintf(tw, "[%d]\t%s\t%s%s\t%s\t%.0f%%\n",
			o.ID, o.Text,
			strings.Repeat("#", fill), strings.Repeat(".", barWidth-fill),
			humanize.Comma(o.VoteCount), share*100)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal votes: %s\n", humanize.Comma(p.TotalVotes))
	if p.HasVotedByCurrentUser {
		fmt.Fprintln(w, "You have voted in this poll.")
	}
}

func writeSummaries(w io.Writer, polls []models.PollSummary, now time.Time) {
	if len(polls) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUESTION\tSTATUS\tVOTES\tCREATED")
	for _, p := range polls {
		cd := countdown.Derive(p.ExpiryTime, p.Closed, now)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.Question, statusLabel(cd), humanize.Comma(p.VoteCount), created(p.CreatedAt, now))
	}
	tw.Flush()
}

func statusLabel(cd countdown.State) string {
	if cd.Remaining != nil {
		return "ends in " + cd.Label()
	}
	return cd.Label()
}

func created(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// note prints a line between frames.
func (r *textRenderer) note(a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, a...)
}
