package paddle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature marks a webhook that fails RSA verification:
	// untrusted or forged, rejected before any state mutation.
	ErrInvalidSignature = errors.New("invalid paddle webhook signature")

	// ErrUpstream marks a non-success response from the vendor API.
	ErrUpstream = errors.New("paddle API error")
)

// APIError is a business error reported by the vendor API (success:false
// under HTTP 200). Terminal: retrying the same request cannot change it.
type APIError struct {
	Op      string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paddle %s failed with code %d: %s", e.Op, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrUpstream }
