package views

import (
	"context"

	"github.com/dmitrijs2005/electica/internal/client/services"
)

// DetailsView is the results view of a poll plus voting.
type DetailsView struct {
	*ResultsView
	polls services.PollService
}

func NewDetailsView(results *ResultsView, polls services.PollService) *DetailsView {
	return &DetailsView{ResultsView: results, polls: polls}
}

// Vote submits optionID for the mounted poll. A successful vote triggers an
// immediate refresh; a rejected one leaves the shown results as they are.
func (v *DetailsView) Vote(ctx context.Context, optionID int64) error {
	pollID, ok := v.mountedPoll()
	if !ok {
		return ErrNotMounted
	}
	if err := v.polls.SubmitVote(ctx, pollID, optionID); err != nil {
		return err
	}
	return v.RefreshNow()
}
