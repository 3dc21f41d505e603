package session

import "github.com/dmitrijs2005/electica/internal/client/models"

type Status int

const (
	StatusUnknown Status = iota
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "loading"
	}
}

// Snapshot is an immutable view of the session. Profile is non-nil exactly
// when Token is non-empty.
type Snapshot struct {
	Status  Status
	Token   string
	Profile *models.Profile
}

func (s Snapshot) Authenticated() bool { return s.Status == StatusAuthenticated }

func (s Snapshot) Loading() bool { return s.Status == StatusUnknown }

var (
	loading   = &Snapshot{Status: StatusUnknown}
	anonymous = &Snapshot{Status: StatusAnonymous}
)

func authenticated(token string, p models.Profile) *Snapshot {
	return &Snapshot{Status: StatusAuthenticated, Token: token, Profile: &p}
}

// clone returns s with its own copy of the profile.
func (s Snapshot) clone() Snapshot {
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}
