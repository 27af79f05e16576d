// Package subscription is the state reconciliation engine: it converts
// validated payment-provider webhook events and team-membership operations
// into consistent user metadata, and projects stored metadata into the
// read view served to client applications.
//
// Stored metadata is a tagged union (base, trial, paying, team owner, team
// member) narrowed in exactly one place, Metadata.Shape. Webhook events
// become Patch values via BuildPatch; patches are merged into the identity
// provider record with nil-deletes and absent-keeps semantics.
package subscription
