package publisher

import (
	"errors"
	"net/http"
)

// Kind classifies a delivery failure by whether retrying the identical
// request could plausibly succeed.
type Kind string

const (
	KindRecoverable Kind = "recoverable"
	KindFatal       Kind = "fatal"
)

// Error is a classified delivery failure from a target client.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind) + " publish error"
}

func (e *Error) Unwrap() error { return e.Err }

// Recoverable wraps a transient failure: rate limit, network error, 5xx.
func Recoverable(err error, message string) *Error {
	return &Error{Kind: KindRecoverable, Message: message, Err: err}
}

// NonRecoverable wraps a failure that retrying cannot fix: auth errors and
// payloads the target rejects outright.
func NonRecoverable(err error, message string) *Error {
	return &Error{Kind: KindFatal, Message: message, Err: err}
}

// ClassifyStatus maps an HTTP status to a failure kind. Rate limiting is
// the one 4xx treated as transient.
func ClassifyStatus(statusCode int) Kind {
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return KindRecoverable
	}
	return KindFatal
}

// KindOf extracts the classification from an error, defaulting to
// recoverable for plain errors such as network timeouts.
func KindOf(err error) Kind {
	var pubErr *Error
	if errors.As(err, &pubErr) {
		return pubErr.Kind
	}
	return KindRecoverable
}
