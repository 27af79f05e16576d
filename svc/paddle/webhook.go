package paddle

import (
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

// Webhook date layouts. Billing dates arrive date-only; some alerts carry
// full timestamps.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ParseEvent normalizes a verified url-encoded webhook body into a
// subscription event. Unrecognized alert names map to EventUnknown, which
// the state machine acknowledges as a no-op: the provider must receive HTTP
// success regardless or it retries indefinitely.
func ParseEvent(form url.Values) subscription.Event {
	ev := subscription.Event{
		Provider:       subscription.ProviderPaddle,
		Email:          form.Get("email"),
		SubscriptionID: form.Get("subscription_id"),
		Status:         form.Get("status"),
		UpdateURL:      form.Get("update_url"),
		CancelURL:      form.Get("cancel_url"),
		ReceiptURL:     form.Get("receipt_url"),
		Raw:            flatten(form),
	}

	switch form.Get("alert_name") {
	case "subscription_created":
		ev.Type = subscription.EventSubscriptionCreated
	case "subscription_updated":
		ev.Type = subscription.EventSubscriptionUpdated
	case "subscription_cancelled":
		ev.Type = subscription.EventSubscriptionCancelled
	case "subscription_payment_succeeded":
		ev.Type = subscription.EventPaymentSucceeded
	case "subscription_payment_failed":
		ev.Type = subscription.EventPaymentFailed
	default:
		ev.Type = subscription.EventUnknown
		return ev
	}

	ev.PlanID = atoi(form.Get("subscription_plan_id"))

	// subscription_updated reports the changed quantity as new_quantity.
	if q := form.Get("new_quantity"); q != "" {
		ev.Quantity = atoi(q)
	} else {
		ev.Quantity = atoi(form.Get("quantity"))
	}

	ev.NextBillDate = parseDate(form.Get("next_bill_date"))
	ev.NextRetryDate = parseDate(form.Get("next_retry_date"))
	ev.CancellationDate = parseDate(form.Get("cancellation_effective_date"))

	return ev
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(dateTimeLayout, s, time.UTC); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

func flatten(form url.Values) map[string]string {
	out := make(map[string]string, len(form))
	for k := range form {
		out[k] = form.Get(k)
	}
	return out
}
