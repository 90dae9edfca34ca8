package apierr

import "fmt"

// Error codes surfaced on the API and job rows.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodePersistenceError    = "PERSISTENCE_ERROR"
	CodeJobNotFound         = "JOB_NOT_FOUND"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
