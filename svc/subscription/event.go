package subscription

import "time"

// EventType is the normalized webhook event type. Provider adapters map
// their own vocabulary (renewal/termination/suspension variants) onto these.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventPaymentSucceeded      EventType = "subscription_payment_succeeded"
	EventPaymentFailed         EventType = "subscription_payment_failed"

	// EventUnknown marks provider events we don't handle. They must still be
	// acknowledged with HTTP success or the provider retries indefinitely.
	EventUnknown EventType = ""
)

// Event is a validated, normalized webhook event. Provider adapters fill in
// whatever fields their payload carries; zero values mean "not reported".
type Event struct {
	Type     EventType
	Provider Provider

	// Email keys the affected user. The legacy provider has no notion of
	// our user ids, so webhook processing is a read-modify-write by email.
	Email string

	SubscriptionID string
	PlanID         int    // legacy numeric plan id
	Status         string // provider-reported status, normalized by the state machine
	Quantity       int    // team products only

	NextBillDate     time.Time // billing-date class: gets ExpirySlack
	NextRetryDate    time.Time // set on payment_failed when a retry is scheduled
	CancellationDate time.Time // authoritative and exact: no slack

	UpdateURL  string
	CancelURL  string
	ReceiptURL string

	// Raw carries the original provider fields for diagnostics.
	Raw map[string]string
}
