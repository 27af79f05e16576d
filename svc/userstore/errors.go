package userstore

import (
	"errors"
	"fmt"
)

var (
	// ErrMirrorUnavailable is returned by mirror reads when the relational
	// store cannot be queried. Mirror failures never propagate to callers
	// of the facade.
	ErrMirrorUnavailable = errors.New("relational mirror unavailable")
)

// APIError is a non-2xx response from the identity provider's API. The
// status code drives retry decisions: 429 and 5xx are transient, other 4xx
// are unrecoverable and abort the retry loop immediately.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider API error %d: %s", e.StatusCode, e.Body)
}

// Unrecoverable reports whether retrying the same request can't help.
func (e *APIError) Unrecoverable() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429
}
