package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failed model call, tagged with whether another attempt can
// succeed. Status is the HTTP status of the reply, or 0 when none arrived.
type Error struct {
	Err       error
	Transient bool
	Status    int
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// NewTransientError marks err as worth retrying.
func NewTransientError(err error) error {
	return &Error{Err: err, Transient: true}
}

// NewFatalError marks err as final.
func NewFatalError(err error) error {
	return &Error{Err: err}
}

// IsTransient reports whether err carries a retryable Error.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transient
}

// IsFatal reports whether err carries a final Error.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && !e.Transient
}

// maxErrorBody bounds how much of an error reply is quoted.
const maxErrorBody = 200

// classifyHTTPError turns a non-200 reply into an Error. Rate limiting and
// server errors are retried.
func classifyHTTPError(status int, body []byte) error {
	quoted := string(body)
	if len(quoted) > maxErrorBody {
		quoted = quoted[:maxErrorBody] + "..."
	}
	return &Error{
		Err:       fmt.Errorf("model endpoint returned %d: %s", status, quoted),
		Transient: status == http.StatusTooManyRequests || status >= 500,
		Status:    status,
	}
}
