package fakebackend

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/encoding/json"
)

const timeLayout = "2006-01-02T15:04:05"

type ctxKey struct{}

func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.injectFailures)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.login)
		r.Post("/auth/signup", b.signup)

		r.Group(func(r chi.Router) {
			r.Use(b.authenticate)

			r.Get("/auth/me", b.me)

			r.Get("/polls", b.listPolls)
			r.Post("/polls", b.createPoll)
			r.Get("/polls/my", b.myPolls)
			r.Get("/polls/voted", b.votedPolls)
			r.Get("/polls/{id}", b.getPoll)
			r.Put("/polls/{id}/close", b.closePoll)
			r.Delete("/polls/{id}", b.deletePoll)
			r.Post("/polls/{id}/vote", b.vote)

			r.Put("/users/{id}", b.updateUser)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"timestamp": time.Now().Format(timeLayout),
		"status":    status,
		"message":   message,
	})
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := b.takeFailure(r); ok {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		b.mu.Lock()
		revoked := b.revoked
		b.mu.Unlock()
		uid, err := b.userFromToken(raw)
		if err != nil || revoked {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	b.mu.Lock()
	var found *user
	for _, u := range b.users {
		if u.Email == req.Email && u.Password == req.Password {
			found = u
		}
	}
	b.mu.Unlock()

	if found == nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token, err := b.issueToken(found.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"id":       found.ID,
		"username": found.Username,
		"email":    found.Email,
		"role":     "USER",
		"message":  "Login successful",
	})
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	fields := map[string]string{}
	if req.Username == "" {
		fields["username"] = "Username is required"
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = "Email should be valid"
	}
	if len(req.Password) < 6 {
		fields["password"] = "Password must be at least 6 characters"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "errors": fields})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == req.Email {
			writeError(w, http.StatusBadRequest, "Email is already in use")
			return
		}
	}
	u := &user{ID: b.id(), Username: req.Username, Email: req.Email, Password: req.Password}
	b.users[u.ID] = u
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "username": u.Username, "email": u.Email})
}

func caller(r *http.Request) int64 {
	uid, _ := r.Context().Value(ctxKey{}).(int64)
	return uid
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	u, ok := b.users[caller(r)]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}

func userJSON(u *user) map[string]any {
	return map[string]any{"id": u.ID, "username": u.Username, "email": u.Email}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Local().Format(timeLayout)
}

func (b *Backend) pollJSON(p *poll, viewer int64) map[string]any {
	opts := make([]map[string]any, 0, len(p.Options))
	var total int64
	for _, o := range p.Options {
		opts = append(opts, map[string]any{"id": o.ID, "optionText": o.Text, "voteCount": o.Votes})
		total += o.Votes
	}
	created := p.CreatedAt
	_, voted := p.Voters[viewer]
	var owner any
	if u, ok := b.users[p.OwnerID]; ok {
		owner = map[string]any{"id": u.ID, "username": u.Username}
	}
	return map[string]any{
		"id":         p.ID,
		"question":   p.Question,
		"options":    opts,
		"createdBy":  owner,
		"createdAt":  formatTime(&created),
		"expiryTime": formatTime(p.Expiry),
		"closed":     p.Closed,
		"hasVoted":   voted,
		"totalVotes": total,
	}
}

func (b *Backend) sortedPolls(keep func(*poll) bool) []*poll {
	out := make([]*poll, 0, len(b.polls))
	for _, p := range b.polls {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (b *Backend) writePolls(w http.ResponseWriter, viewer int64, keep func(*poll) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]map[string]any, 0)
	for _, p := range b.sortedPolls(keep) {
		list = append(list, b.pollJSON(p, viewer))
	}
	writeJSON(w, http.StatusOK, list)
}

func (b *Backend) listPolls(w http.ResponseWriter, r *http.Request) {
	b.writePolls(w, caller(r), func(*poll) bool { return true })
}

func queryUser(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	return id, err == nil
}

func (b *Backend) myPolls(w http.ResponseWriter, r *http.Request) {
	uid, ok := queryUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]map[string]any, 0)
	for _, p := range b.sortedPolls(func(p *poll) bool { return p.OwnerID == uid }) {
		var votes int64
		for _, o := range p.Options {
			votes += o.Votes
		}
		created := p.CreatedAt
		list = append(list, map[string]any{
			"id":         p.ID,
			"question":   p.Question,
			"voteCount":  votes,
			"expiryTime": formatTime(p.Expiry),
			"closed":     p.Closed,
			"createdAt":  formatTime(&created),
		})
	}
	writeJSON(w, http.StatusOK, list)
}

func (b *Backend) votedPolls(w http.ResponseWriter, r *http.Request) {
	uid, ok := queryUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	b.writePolls(w, uid, func(p *poll) bool {
		_, voted := p.Voters[uid]
		return voted
	})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (b *Backend) getPoll(w http.ResponseWriter, r *http.Request) {
	if b.Hold != nil {
		select {
		case <-b.Hold:
		case <-r.Context().Done():
			return
		}
	}
	viewer, ok := queryUser(r)
	if !ok {
		viewer = caller(r)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.polls[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Poll not found")
		return
	}
	writeJSON(w, http.StatusOK, b.pollJSON(p, viewer))
}

func (b *Backend) createPoll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question   string   `json:"question"`
		Options    []string `json:"options"`
		ExpiryTime string   `json:"expiryTime"`
		UserID     int64    `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Question == "" || len(req.Options) < 2 {
		writeError(w, http.StatusBadRequest, "Question and at least 2 options are required")
		return
	}
	var expiry *time.Time
	if req.ExpiryTime != "" {
		t, err := time.ParseInLocation(timeLayout, req.ExpiryTime, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expiry time")
			return
		}
		expiry = &t
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[req.UserID]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	id, _ := b.addPoll(req.UserID, req.Question, req.Options, expiry)
	writeJSON(w, http.StatusCreated, b.pollJSON(b.polls[id], req.UserID))
}

func (b *Backend) ownedPoll(w http.ResponseWriter, r *http.Request) (*poll, bool) {
	uid, ok := queryUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "userId is required")
		return nil, false
	}
	p, ok := b.polls[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Poll not found")
		return nil, false
	}
	if p.OwnerID != uid {
		writeError(w, http.StatusForbidden, "Only the poll owner can do this")
		return nil, false
	}
	return p, true
}

func (b *Backend) closePoll(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.ownedPoll(w, r)
	if !ok {
		return
	}
	p.Closed = true
	writeJSON(w, http.StatusOK, map[string]any{"message": "Poll closed successfully"})
}

func (b *Backend) deletePoll(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.ownedPoll(w, r)
	if !ok {
		return
	}
	delete(b.polls, p.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) vote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option struct {
			ID int64 `json:"id"`
		} `json:"option"`
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.polls[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "Poll not found")
		return
	}
	switch {
	case p.Closed:
		writeError(w, http.StatusBadRequest, "Poll is already closed")
		return
	case p.Expiry != nil && !time.Now().Before(*p.Expiry):
		writeError(w, http.StatusGone, "Voting time has expired")
		return
	}
	if _, voted := p.Voters[req.User.ID]; voted {
		writeError(w, http.StatusConflict, "User has already voted")
		return
	}
	for _, o := range p.Options {
		if o.ID == req.Option.ID {
			o.Votes++
			p.Voters[req.User.ID] = o.ID
			writeJSON(w, http.StatusCreated, map[string]any{"message": "Vote recorded successfully"})
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Option does not belong to this poll")
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[pathID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if u.ID != caller(r) {
		writeError(w, http.StatusForbidden, "Cannot edit another user")
		return
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		writeError(w, http.StatusBadRequest, "Email should be valid")
		return
	}
	if req.Username != nil {
		u.Username = *req.Username
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}
