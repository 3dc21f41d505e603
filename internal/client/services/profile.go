package services

import (
	"context"

	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/logging"
)

type ProfileService interface {
	Save(ctx context.Context, patch models.ProfilePatch) (*models.Profile, error)
}

type profileService struct {
	api      client.Client
	sessions Sessions
	logger   logging.Logger
}

func NewProfileService(api client.Client, sessions Sessions, logger logging.Logger) ProfileService {
	return &profileService{api: api, sessions: sessions, logger: logger}
}

// Save sends the patch to the backend and, only once it is accepted,
// merges the server's version of the profile into the session. Fields the
// server leaves empty fall back to what was sent.
func (s *profileService) Save(ctx context.Context, patch models.ProfilePatch) (*models.Profile, error) {
	uid, err := currentUser(s.sessions)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return currentProfile(s.sessions), nil
	}

	updated, err := s.api.UpdateUser(ctx, uid, patch)
	if err != nil {
		return nil, err
	}
	confirmed := patch
	if updated != nil {
		confirmed = models.PatchFrom(*updated).Or(patch)
	}
	if err := s.sessions.UpdateProfile(ctx, confirmed); err != nil {
		s.logger.Error(ctx, "profile saved remotely but not locally", "error", err)
		return nil, err
	}
	s.logger.Info(ctx, "profile updated", "user_id", uid)
	return currentProfile(s.sessions), nil
}

func currentProfile(s Sessions) *models.Profile {
	p := s.Snapshot().Profile
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
