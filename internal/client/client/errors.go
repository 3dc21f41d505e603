package client

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidationFailed   = errors.New("validation failed")
	ErrNetworkFailure     = errors.New("network failure")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrExpired            = errors.New("poll is closed or expired")
	ErrInvalidOption      = errors.New("invalid option")
	ErrUnauthorized       = errors.New("unauthorized")
)

// AuthError is returned by login and signup.
type AuthError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AuthError) Error() string   { return formatKind("auth", e.Kind, e.Message, e.Err) }
func (e *AuthError) Unwrap() []error { return unwrapKind(e.Kind, e.Err) }

// FetchError is returned by reads of polls and listings.
type FetchError struct {
	Kind    error
	Message string
	Err     error
}

func (e *FetchError) Error() string   { return formatKind("fetch", e.Kind, e.Message, e.Err) }
func (e *FetchError) Unwrap() []error { return unwrapKind(e.Kind, e.Err) }

// VoteError is returned by vote submission.
type VoteError struct {
	Kind    error
	Message string
	Err     error
}

func (e *VoteError) Error() string   { return formatKind("vote", e.Kind, e.Message, e.Err) }
func (e *VoteError) Unwrap() []error { return unwrapKind(e.Kind, e.Err) }

// RequestError is returned by the remaining writes: poll create, close and
// delete, and profile update.
type RequestError struct {
	Kind    error
	Message string
	Err     error
}

func (e *RequestError) Error() string   { return formatKind("request", e.Kind, e.Message, e.Err) }
func (e *RequestError) Unwrap() []error { return unwrapKind(e.Kind, e.Err) }

func formatKind(op string, kind error, msg string, cause error) string {
	var b strings.Builder
	b.WriteString(op)
	if kind != nil {
		b.WriteString(": ")
		b.WriteString(kind.Error())
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

func unwrapKind(kind, cause error) []error {
	errs := make([]error, 0, 2)
	if kind != nil {
		errs = append(errs, kind)
	}
	if cause != nil {
		errs = append(errs, cause)
	}
	return errs
}

var defaultMessages = []struct {
	kind error
	msg  string
}{
	{ErrInvalidCredentials, "Invalid email or password."},
	{ErrNetworkFailure, "Could not reach the server. Please try again."},
	{ErrNotFound, "Not found."},
	{ErrAlreadyVoted, "You have already voted on this poll."},
	{ErrExpired, "This poll is no longer accepting votes."},
	{ErrInvalidOption, "That option does not belong to this poll."},
	{ErrUnauthorized, "Your session has expired. Please log in again."},
	{ErrValidationFailed, "The request was rejected."},
}

// UserMessage returns text suitable for showing to the user: the backend's
// own message when there is one, otherwise a fixed sentence for the kind.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := backendMessage(err); msg != "" {
		return msg
	}
	for _, d := range defaultMessages {
		if errors.Is(err, d.kind) {
			return d.msg
		}
	}
	return err.Error()
}

func backendMessage(err error) string {
	var (
		ae *AuthError
		fe *FetchError
		ve *VoteError
		re *RequestError
	)
	switch {
	case errors.As(err, &ae):
		return ae.Message
	case errors.As(err, &fe):
		return fe.Message
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &re):
		return re.Message
	}
	return ""
}
