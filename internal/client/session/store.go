package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/segmentio/encoding/json"

	"github.com/dmitrijs2005/electica/internal/client/client"
	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/electica/internal/logging"
)

const (
	tokenKey   = "token"
	profileKey = "user"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Authenticator is the slice of the backend API the store drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	Signup(ctx context.Context, in models.SignupInput) error
	Me(ctx context.Context) (*models.Profile, error)
}

type Option func(*Store)

// WithRevalidation makes Restore confirm a restored session with the
// backend before resolving.
func WithRevalidation(on bool) Option {
	return func(s *Store) { s.revalidate = on }
}

type Store struct {
	auth       Authenticator
	storage    metadata.Store
	logger     logging.Logger
	revalidate bool

	// mu serializes writers; readers only load state.
	mu    sync.Mutex
	state atomic.Pointer[Snapshot]

	// restoring holds the stored token while a restored session is being
	// confirmed with the backend; nothing is published until then.
	restoring atomic.Pointer[string]

	ready     chan struct{}
	readyOnce sync.Once

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func NewStore(auth Authenticator, storage metadata.Store, logger logging.Logger, opts ...Option) *Store {
	s := &Store{
		auth:    auth,
		storage: storage,
		logger:  logger,
		ready:   make(chan struct{}),
		subs:    make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(s)
	}
	s.state.Store(loading)
	return s
}

// Snapshot returns a copy of the current state. Changing it does not
// change the session.
func (s *Store) Snapshot() Snapshot { return s.state.Load().clone() }

// Token returns the bearer token for outgoing requests. While a restored
// session is being confirmed it is the stored token, even though the state
// is still loading.
func (s *Store) Token() string {
	snap := s.state.Load()
	if snap.Loading() {
		if t := s.restoring.Load(); t != nil {
			return *t
		}
	}
	return snap.Token
}

// Profile returns a copy of the profile, or nil when anonymous.
func (s *Store) Profile() *models.Profile {
	p := s.state.Load().Profile
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (s *Store) Authenticated() bool { return s.state.Load().Authenticated() }

func (s *Store) Status() Status { return s.state.Load().Status }

func (s *Store) Loading() bool { return s.state.Load().Loading() }

// Ready is closed once Restore has resolved the initial state.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Subscribe registers fn for every state change. fn runs with the writer
// lock held: it must return quickly and must not call back into the Store.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// set publishes next; callers hold mu.
func (s *Store) set(next *Snapshot) {
	prev := s.state.Swap(next)
	if prev == next {
		return
	}
	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		fn(next.clone())
	}
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Info(ctx, "login failed", "email", email, "error", err)
		return err
	}
	if res.Token == "" {
		return &client.AuthError{Kind: client.ErrInvalidCredentials, Message: "Login failed: no token received"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, res.Token, res.Profile); err != nil {
		s.logger.Error(ctx, "failed to persist session", "error", err)
		return fmt.Errorf("persist session: %w", err)
	}
	s.set(authenticated(res.Token, res.Profile))
	s.markReady()
	s.logger.Info(ctx, "logged in", "user_id", res.Profile.ID)
	return nil
}

func (s *Store) Signup(ctx context.Context, in models.SignupInput) error {
	if err := s.auth.Signup(ctx, in); err != nil {
		s.logger.Info(ctx, "signup failed", "email", in.Email, "error", err)
		return err
	}
	return nil
}

// Logout clears the session in memory and on disk. It never fails; a
// storage error is logged and the in-memory state is cleared regardless.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear(ctx)
}

// Reject is Logout triggered by the backend refusing token. A rejection
// of a token the session no longer holds is ignored.
func (s *Store) Reject(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.state.Load()
	if !cur.Authenticated() || token == "" || cur.Token != token {
		return
	}
	s.logger.Warn(ctx, "session rejected, logging out")
	s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) {
	err := s.storage.InTx(ctx, func(ctx context.Context, repo metadata.Repository) error {
		return repo.Delete(ctx, tokenKey, profileKey)
	})
	if err != nil {
		s.logger.Error(ctx, "failed to clear stored session", "error", err)
	}
	s.set(anonymous)
	s.markReady()
}

// UpdateProfile merges patch into the profile without touching the token.
func (s *Store) UpdateProfile(ctx context.Context, patch models.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if !cur.Authenticated() {
		return ErrNotAuthenticated
	}
	next := patch.Apply(*cur.Profile)

	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.storage.Set(ctx, profileKey, b); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	s.set(authenticated(cur.Token, next))
	return nil
}

func (s *Store) persist(ctx context.Context, token string, p models.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.storage.InTx(ctx, func(ctx context.Context, repo metadata.Repository) error {
		if err := repo.Set(ctx, tokenKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, profileKey, b)
	})
}

// Restore resolves the initial state from durable storage. A stored token
// with a decodable profile is trusted without asking the backend unless
// revalidation is on, in which case the state stays loading until the
// backend answers. Anything else resolves to anonymous and wipes the
// stored keys. Ready is closed when Restore returns.
func (s *Store) Restore(ctx context.Context) error {
	defer s.markReady()

	restored, err := s.load(ctx)
	if err != nil || restored == nil || !s.revalidate {
		return err
	}
	return s.confirm(ctx, restored)
}

// load reads the stored pair. It returns the restored session, or nil when
// there is none. The restored session is published right away only when
// it does not need confirming.
func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Load().Loading() {
		return nil, nil
	}

	token, err := s.storage.Get(ctx, tokenKey)
	if err != nil {
		s.set(anonymous)
		return nil, fmt.Errorf("read stored token: %w", err)
	}
	raw, err := s.storage.Get(ctx, profileKey)
	if err != nil {
		s.set(anonymous)
		return nil, fmt.Errorf("read stored profile: %w", err)
	}

	if len(token) == 0 {
		if raw != nil {
			s.logger.Warn(ctx, "stored profile without token, discarding")
			s.clear(ctx)
			return nil, nil
		}
		s.set(anonymous)
		return nil, nil
	}

	var p models.Profile
	if raw == nil || json.Unmarshal(raw, &p) != nil {
		s.logger.Warn(ctx, "stored token without a usable profile, discarding")
		s.clear(ctx)
		return nil, nil
	}

	restored := authenticated(string(token), p)
	if !s.revalidate {
		s.set(restored)
	}
	s.logger.Debug(ctx, "session restored", "user_id", p.ID)
	return restored, nil
}

// confirm asks the backend about a restored session and publishes the
// outcome. The writer lock is not held during the request.
func (s *Store) confirm(ctx context.Context, restored *Snapshot) error {
	s.restoring.Store(&restored.Token)
	profile, meErr := s.auth.Me(ctx)
	s.restoring.Store(nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A login or logout settled the state while the request was out.
	if !s.state.Load().Loading() {
		return nil
	}

	switch {
	case meErr == nil:
		b, err := json.Marshal(*profile)
		if err != nil {
			s.set(restored)
			return fmt.Errorf("encode profile: %w", err)
		}
		if err := s.storage.Set(ctx, profileKey, b); err != nil {
			s.set(restored)
			return fmt.Errorf("persist profile: %w", err)
		}
		s.set(authenticated(restored.Token, *profile))
	case errors.Is(meErr, client.ErrUnauthorized):
		s.logger.Warn(ctx, "restored session rejected, logging out")
		s.clear(ctx)
	default:
		s.logger.Warn(ctx, "could not revalidate session, keeping it", "error", meErr)
		s.set(restored)
	}
	return nil
}
