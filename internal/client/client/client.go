package client

import (
	"context"

	"github.com/dmitrijs2005/electica/internal/client/models"
)

type Client interface {
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	Signup(ctx context.Context, in models.SignupInput) error
	Me(ctx context.Context) (*models.Profile, error)

	ListPolls(ctx context.Context) ([]models.PollSummary, error)
	MyPolls(ctx context.Context, userID int64) ([]models.PollSummary, error)
	VotedPolls(ctx context.Context, userID int64) ([]models.PollSummary, error)
	FetchSnapshot(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error)

	CreatePoll(ctx context.Context, req models.CreatePollRequest) (*models.PollSummary, error)
	ClosePoll(ctx context.Context, pollID, userID int64) error
	DeletePoll(ctx context.Context, pollID, userID int64) error
	Vote(ctx context.Context, pollID, optionID, voterID int64) error

	UpdateUser(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error)
}

// Session is the part of the session store the client needs: the current
// token and a way to reject it. Reject receives the token the refused
// request carried.
type Session interface {
	Token() string
	Reject(ctx context.Context, token string)
}
