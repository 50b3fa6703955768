package catalog

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes how a catalog call failed.
type ErrorCategory string

const (
	// ErrorTimeout: the call did not finish within its budget.
	ErrorTimeout ErrorCategory = "timeout"
	// ErrorProviderOutage: the catalog could not be reached, or the breaker
	// is open.
	ErrorProviderOutage ErrorCategory = "provider_outage"
	// ErrorNotFound: the catalog answered that the record does not exist.
	ErrorNotFound ErrorCategory = "not_found"
	// ErrorHTTP: any other non-2xx answer.
	ErrorHTTP ErrorCategory = "http_error"
	// ErrorBadData: the body could not be decoded.
	ErrorBadData ErrorCategory = "bad_data"
)

// UpstreamError is a catalog call that failed or returned something unusable.
// The client never retries; Retryable only tells the caller whether a later
// attempt could succeed.
type UpstreamError struct {
	Category   ErrorCategory
	Catkey     string
	Status     int
	Message    string
	Underlying error
}

func (e *UpstreamError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("symphony [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("symphony [%s]: %s", e.Category, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Underlying
}

func (e *UpstreamError) Retryable() bool {
	return e.Category == ErrorTimeout || e.Category == ErrorProviderOutage
}

// RecordIncompleteError is a response whose body length is not the declared
// Content-Length minus the wrapper overhead.
type RecordIncompleteError struct {
	Catkey   string
	Declared int64
	Expected int64
	Actual   int64
}

func (e *RecordIncompleteError) Error() string {
	return fmt.Sprintf("Incomplete response received from Symphony for %s - declared Content-Length %d, expected %d bytes but got %d",
		e.Catkey, e.Declared, e.Expected, e.Actual)
}

// IsUnavailable reports whether err means the catalog could not be consulted
// at all (timeout, outage, open breaker), as opposed to answering badly.
func IsUnavailable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	return false
}

// IsNotFound reports whether the catalog said the record does not exist.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Category == ErrorNotFound
}
