package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures so callers can decide between
// retrying, aborting and surfacing a precondition violation.
type ErrorKind int

const (
	// MalformedFeedKind means the document was retrieved but could not be
	// parsed. Retryable; the upstream may fix the document.
	MalformedFeedKind ErrorKind = iota
	// FetchUnavailableKind means the document could not be retrieved at
	// all (network error, timeout, bad status). Retryable.
	FetchUnavailableKind
	// MaxRetriesExceededKind is terminal: the retry budget for one refresh
	// is spent and the feed has been disabled.
	MaxRetriesExceededKind
	// NotFollowingKind, AlreadyFollowingKind, AlreadyMarkedKind and
	// NotMarkedKind are precondition violations on owner actions. They are
	// returned to the caller and never retried.
	NotFollowingKind
	AlreadyFollowingKind
	AlreadyMarkedKind
	NotMarkedKind
	// FeedNotFoundKind aborts a single refresh invocation with no side
	// effects.
	FeedNotFoundKind
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedFeedKind:
		return "malformed feed"
	case FetchUnavailableKind:
		return "fetch unavailable"
	case MaxRetriesExceededKind:
		return "max retries exceeded"
	case NotFollowingKind:
		return "not following"
	case AlreadyFollowingKind:
		return "already following"
	case AlreadyMarkedKind:
		return "already marked as read"
	case NotMarkedKind:
		return "not marked as read"
	case FeedNotFoundKind:
		return "feed not found"
	}
	return "unknown"
}

// Retryable reports whether a failure of this kind feeds the refresh
// retry/backoff path.
func (k ErrorKind) Retryable() bool {
	return k == MalformedFeedKind || k == FetchUnavailableKind
}

// Error is the single domain error type. Details is human readable and
// safe to show to the feed owner.
type Error struct {
	Kind    ErrorKind
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Details)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a domain error with formatted details.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Details: fmt.Sprintf(format, args...)}
}

// WrapError builds a domain error preserving the underlying cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Details: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind == kind
	}
	return false
}

// KindOf extracts the kind of a domain error, if err carries one.
func KindOf(err error) (ErrorKind, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind, true
	}
	return 0, false
}
