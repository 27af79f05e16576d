// Package retry provides a generic retry-with-backoff decorator shared by
// every provider-facing call in this repository. Policies carry max attempts,
// a backoff strategy, and an optional abort predicate for errors that are
// known to be unrecoverable.
package retry
