// Package paypro integrates the secondary payment provider: SHA-256
// fixed-tuple IPN signature validation, IPN event normalization,
// best-effort custom-field parsing, subscription termination via the
// management API, and encrypted dynamic-pricing checkout URLs.
package paypro
