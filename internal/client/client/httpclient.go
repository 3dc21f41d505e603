package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"

	"github.com/dmitrijs2005/electica/internal/client/models"
	"github.com/dmitrijs2005/electica/internal/logging"
	"github.com/dmitrijs2005/electica/internal/timex"
)

const requestIDHeader = "X-Request-ID"

// apiError is a non-2xx answer before it is mapped to an operation's kind.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	session Session
	logger  logging.Logger
}

// NewHTTPClient builds a client for the API rooted at baseURL
// (e.g. http://localhost:8080/api).
func NewHTTPClient(baseURL string, timeout time.Duration, logger logging.Logger) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
	c.http = &http.Client{
		Timeout:   timeout,
		Transport: &authTransport{base: http.DefaultTransport, client: c},
	}
	return c
}

// UseSession binds the session whose token authenticates requests. It must
// be called before the client is shared between goroutines.
func (c *HTTPClient) UseSession(s Session) {
	c.session = s
}

type publicKey struct{}

// public marks a request that must never carry the token nor reject the
// session on 401 (login, signup).
func public(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicKey{}, true)
}

func isPublic(ctx context.Context) bool {
	v, _ := ctx.Value(publicKey{}).(bool)
	return v
}

// authTransport injects the bearer token and a request id, and rejects the
// session when an authenticated request comes back 401.
type authTransport struct {
	base   http.RoundTripper
	client *HTTPClient
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	r := req.Clone(ctx)
	if r.Header.Get(requestIDHeader) == "" {
		r.Header.Set(requestIDHeader, uuid.NewString())
	}

	var token string
	sess := t.client.session
	if sess != nil && !isPublic(ctx) {
		token = sess.Token()
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		t.client.logger.Warn(ctx, "session rejected by server",
			"method", r.Method, "path", r.URL.Path, "request_id", r.Header.Get(requestIDHeader))
		sess.Reject(context.WithoutCancel(ctx), token)
	}
	return resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "api request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "api request", "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	e := &apiError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		e.Message = body.text()
	} else if s := strings.TrimSpace(string(raw)); s != "" && !strings.HasPrefix(s, "<") {
		e.Message = s
	}
	return e
}

// statusOf returns the HTTP status of err, or 0 for transport failures.
func statusOf(err error) (int, string) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Status, ae.Message
	}
	return 0, ""
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	var resp loginResponse
	err := c.do(public(ctx), http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		status, msg := statusOf(err)
		if status >= 400 && status < 500 {
			return nil, &AuthError{Kind: ErrInvalidCredentials, Message: msg}
		}
		return nil, &AuthError{Kind: ErrNetworkFailure, Err: err}
	}
	if resp.Token == "" {
		return nil, &AuthError{Kind: ErrInvalidCredentials, Message: "Login failed: no token received"}
	}
	return &models.LoginResult{Token: resp.Token, Profile: resp.profile()}, nil
}

func (c *HTTPClient) Signup(ctx context.Context, in models.SignupInput) error {
	err := c.do(public(ctx), http.MethodPost, "/auth/signup", nil, in, nil)
	if err == nil {
		return nil
	}
	status, msg := statusOf(err)
	if status >= 400 && status < 500 {
		return &AuthError{Kind: ErrValidationFailed, Message: msg}
	}
	return &AuthError{Kind: ErrNetworkFailure, Err: err}
}

func (c *HTTPClient) Me(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &p); err != nil {
		return nil, fetchError(err)
	}
	return &p, nil
}

func fetchError(err error) error {
	status, msg := statusOf(err)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &FetchError{Kind: ErrUnauthorized, Message: msg}
	case status == http.StatusNotFound,
		status >= 400 && status < 500 && strings.Contains(strings.ToLower(msg), "not found"):
		return &FetchError{Kind: ErrNotFound, Message: msg}
	default:
		return &FetchError{Kind: ErrNetworkFailure, Err: err}
	}
}

func userQuery(userID int64) url.Values {
	return url.Values{"userId": []string{strconv.FormatInt(userID, 10)}}
}

func (c *HTTPClient) listPolls(ctx context.Context, path string, query url.Values) ([]models.PollSummary, error) {
	var polls []pollDTO
	if err := c.do(ctx, http.MethodGet, path, query, nil, &polls); err != nil {
		return nil, fetchError(err)
	}
	return summaries(polls), nil
}

func (c *HTTPClient) ListPolls(ctx context.Context) ([]models.PollSummary, error) {
	return c.listPolls(ctx, "/polls", nil)
}

func (c *HTTPClient) MyPolls(ctx context.Context, userID int64) ([]models.PollSummary, error) {
	return c.listPolls(ctx, "/polls/my", userQuery(userID))
}

func (c *HTTPClient) VotedPolls(ctx context.Context, userID int64) ([]models.PollSummary, error) {
	return c.listPolls(ctx, "/polls/voted", userQuery(userID))
}

func (c *HTTPClient) FetchSnapshot(ctx context.Context, pollID, viewerID int64) (*models.PollSnapshot, error) {
	var p pollDTO
	path := "/polls/" + strconv.FormatInt(pollID, 10)
	if err := c.do(ctx, http.MethodGet, path, userQuery(viewerID), nil, &p); err != nil {
		return nil, fetchError(err)
	}
	s := p.snapshot()
	return &s, nil
}

func requestError(err error) error {
	status, msg := statusOf(err)
	switch {
	case status == http.StatusUnauthorized:
		return &RequestError{Kind: ErrUnauthorized, Message: msg}
	case status == http.StatusNotFound:
		return &RequestError{Kind: ErrNotFound, Message: msg}
	case status >= 400 && status < 500:
		return &RequestError{Kind: ErrValidationFailed, Message: msg}
	default:
		return &RequestError{Kind: ErrNetworkFailure, Err: err}
	}
}

func (c *HTTPClient) CreatePoll(ctx context.Context, req models.CreatePollRequest) (*models.PollSummary, error) {
	body := createPollBody{
		Question:   req.Question,
		Options:    req.Options,
		ExpiryTime: timex.FormatLocal(req.ExpiryTime.In(time.Local)),
		UserID:     req.UserID,
	}
	var p pollDTO
	if err := c.do(ctx, http.MethodPost, "/polls", nil, body, &p); err != nil {
		return nil, requestError(err)
	}
	s := p.summary()
	return &s, nil
}

func (c *HTTPClient) ClosePoll(ctx context.Context, pollID, userID int64) error {
	path := "/polls/" + strconv.FormatInt(pollID, 10) + "/close"
	if err := c.do(ctx, http.MethodPut, path, userQuery(userID), nil, nil); err != nil {
		return requestError(err)
	}
	return nil
}

func (c *HTTPClient) DeletePoll(ctx context.Context, pollID, userID int64) error {
	path := "/polls/" + strconv.FormatInt(pollID, 10)
	if err := c.do(ctx, http.MethodDelete, path, userQuery(userID), nil, nil); err != nil {
		return requestError(err)
	}
	return nil
}

func (c *HTTPClient) Vote(ctx context.Context, pollID, optionID, voterID int64) error {
	path := "/polls/" + strconv.FormatInt(pollID, 10) + "/vote"
	body := voteBody{Option: idRef{ID: optionID}, User: idRef{ID: voterID}}
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return voteError(err)
	}
	return nil
}

func voteError(err error) error {
	status, msg := statusOf(err)
	lower := strings.ToLower(msg)
	switch {
	case status == 0 || status >= 500:
		return &VoteError{Kind: ErrNetworkFailure, Err: err}
	case status == http.StatusUnauthorized:
		return &VoteError{Kind: ErrUnauthorized, Message: msg}
	case status == http.StatusConflict, strings.Contains(lower, "already voted"):
		return &VoteError{Kind: ErrAlreadyVoted, Message: msg}
	case status == http.StatusGone, strings.Contains(lower, "expired"), strings.Contains(lower, "closed"):
		return &VoteError{Kind: ErrExpired, Message: msg}
	default:
		return &VoteError{Kind: ErrInvalidOption, Message: msg}
	}
}

func (c *HTTPClient) UpdateUser(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error) {
	var p models.Profile
	path := "/users/" + strconv.FormatInt(userID, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, patch, &p); err != nil {
		return nil, requestError(err)
	}
	return &p, nil
}
