package paypro

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

const dateLayout = "2006-01-02 15:04:05"

// ParseEvent normalizes a verified IPN body into a subscription event.
// Unrecognized IPN types map to EventUnknown and are acknowledged as
// no-ops.
func ParseEvent(form url.Values) subscription.Event {
	ev := subscription.Event{
		Provider:       subscription.ProviderPayPro,
		Email:          form.Get("CUSTOMER_EMAIL"),
		SubscriptionID: form.Get("SUBSCRIPTION_ID"),
		Status:         form.Get("ORDER_STATUS"),
		ReceiptURL:     form.Get("INVOICE_LINK"),
		Raw:            flatten(form),
	}

	if plan, ok := subscription.PlanBySKU(form.Get("PRODUCT_SKU")); ok {
		ev.PlanID = plan.PlanID
	}

	switch form.Get("IPN_TYPE_NAME") {
	case "OrderCharged":
		ev.Type = subscription.EventSubscriptionCreated
		ev.NextBillDate = parseDate(form.Get("SUBSCRIPTION_NEXT_CHARGE_DATE"))
	case "SubscriptionChargeSucceed", "SubscriptionRenewed":
		ev.Type = subscription.EventPaymentSucceeded
		ev.NextBillDate = parseDate(form.Get("SUBSCRIPTION_NEXT_CHARGE_DATE"))
	case "SubscriptionChargeFailed":
		ev.Type = subscription.EventPaymentFailed
		ev.NextRetryDate = parseDate(form.Get("SUBSCRIPTION_NEXT_CHARGE_ATTEMPT_DATE"))
	case "SubscriptionSuspended":
		// Suspension is a final charge failure: no retry is scheduled.
		ev.Type = subscription.EventPaymentFailed
	case "SubscriptionTerminated":
		ev.Type = subscription.EventSubscriptionCancelled
		ev.CancellationDate = parseDate(form.Get("SUBSCRIPTION_FINAL_DATE"))
	default:
		ev.Type = subscription.EventUnknown
	}

	return ev
}

// customFieldKey locates "key=" markers in the custom-fields blob.
var customFieldKey = regexp.MustCompile(`(?:^|,)\s*([A-Za-z0-9_-]+)=`)

// ParseCustomFields splits the provider's comma-delimited custom-fields
// string into a map. The format is ambiguous - values may themselves
// contain commas and the provider guarantees no stricter grammar - so this
// is a best-effort parse: everything between one "key=" marker and the
// next belongs to the first key. Callers must not assume full fidelity.
func ParseCustomFields(s string) map[string]string {
	out := make(map[string]string)
	if s == "" {
		return out
	}

	matches := customFieldKey.FindAllStringSubmatchIndex(s, -1)
	for i, m := range matches {
		key := s[m[2]:m[3]]
		valStart := m[1]
		valEnd := len(s)
		if i+1 < len(matches) {
			valEnd = matches[i+1][0]
		}
		out[key] = strings.TrimSpace(s[valStart:valEnd])
	}
	return out
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
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
