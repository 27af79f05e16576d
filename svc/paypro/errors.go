package paypro

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature marks an IPN that fails hash verification:
	// untrusted or forged, rejected before any state mutation.
	ErrInvalidSignature = errors.New("invalid paypro IPN signature")

	// ErrDiscountUnsupported is returned when a discount code is requested
	// for this provider, which has no supported way to apply one.
	ErrDiscountUnsupported = errors.New("discount codes are not supported for paypro checkouts")

	// ErrUpstream marks a failed response from the provider API.
	ErrUpstream = errors.New("paypro API error")
)

// APIError is a business error reported by the provider API. Terminal.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypro %s failed: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error { return ErrUpstream }
