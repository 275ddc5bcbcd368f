package article

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no article matches an id.
	ErrNotFound = errors.New("article not found")
	// ErrDuplicateLink is returned by Create when the link is already stored.
	ErrDuplicateLink = errors.New("article link already exists")
)

// NetworkError reports a failed fetch: transport failure, timeout or non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Temporary reports whether another attempt could succeed. Client errors (4xx) are final.
func (e *NetworkError) Temporary() bool {
	return e.StatusCode < 400 || e.StatusCode >= 500
}

// ValidationError rejects a candidate that cannot become a draft.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a persistence failure for a single operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
