package riot

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// KindRateLimited: provider answered 429 after the in-client retry budget.
	KindRateLimited ErrorKind = "rate_limited"
	// KindUnavailable: provider answered 5xx.
	KindUnavailable ErrorKind = "unavailable"
	// KindNotFound: player or match does not exist (404).
	KindNotFound ErrorKind = "not_found"
	// KindTimeout: the bounded request timeout elapsed.
	KindTimeout ErrorKind = "timeout"
	// KindTransport: any other network or decode failure.
	KindTransport ErrorKind = "transport"
)

// Error is the uniform failure contract of the client: every failed call
// surfaces exactly one of the kinds above so callers can decide retry vs
// abort without inspecting status codes.
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("riot: %s: %v", e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("riot: %s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("riot: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a riot client error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// Retryable reports whether the failure is transient from the provider's
// point of view (rate limit, outage, timeout).
func Retryable(err error) bool {
	var re *Error
	if !errors.As(err, &re) {
		return false
	}
	switch re.Kind {
	case KindRateLimited, KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}
