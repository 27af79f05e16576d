package subscription

// BuildPatch converts one validated webhook event into the metadata patch it
// implies, given the user's current metadata. It is pure: re-applying the
// same event yields the same patch, so redelivered webhooks are harmless.
//
// Fields the event does not report are left out of the patch entirely; the
// only nil values written are intentional deletes. An unknown event type
// yields an empty patch - the caller logs and acknowledges it, because the
// provider must receive HTTP success or it will retry forever.
func BuildPatch(current Metadata, ev Event) Patch {
	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return activeSubscriptionPatch(current, ev, true)
	case EventPaymentSucceeded:
		return activeSubscriptionPatch(current, ev, false)
	case EventPaymentFailed:
		return paymentFailedPatch(ev)
	case EventSubscriptionCancelled:
		return cancelledPatch(ev)
	default:
		return Patch{}
	}
}

// activeSubscriptionPatch covers created/updated and renewal events: the
// subscription is (or stays) live and the expiry rolls forward to the next
// billing date plus slack.
func activeSubscriptionPatch(current Metadata, ev Event, initTeam bool) Patch {
	p := Patch{}

	p["subscription_status"] = string(normalizeStatus(ev.Status))

	if !ev.NextBillDate.IsZero() {
		p["subscription_expiry"] = ev.NextBillDate.Add(ExpirySlack).UnixMilli()
	}
	if ev.SubscriptionID != "" {
		p["subscription_id"] = ev.SubscriptionID
	}
	if plan, ok := PlanByID(ev.PlanID); ok {
		p["subscription_plan_id"] = plan.PlanID
		p["subscription_sku"] = plan.SKU
	}
	if ev.Provider != "" {
		p["payment_provider"] = string(ev.Provider)
	}
	if ev.Quantity > 0 {
		p["subscription_quantity"] = ev.Quantity
	}
	if ev.UpdateURL != "" {
		p["update_url"] = ev.UpdateURL
	}
	if ev.CancelURL != "" {
		p["cancel_url"] = ev.CancelURL
	}
	if ev.ReceiptURL != "" {
		p["last_receipt_url"] = ev.ReceiptURL
	}

	// Initialize team membership only when absent. Renewals and updates for
	// an existing team subscription must never reset membership.
	if initTeam && IsTeamPlanID(ev.PlanID) && current.TeamMemberIDs == nil {
		p["team_member_ids"] = []string{}
	}

	return p
}

func paymentFailedPatch(ev Event) Patch {
	if ev.NextRetryDate.IsZero() {
		// Final failure: the provider gave up retrying. The expiry field is
		// deliberately untouched - it keeps the last known value.
		return Patch{"subscription_status": string(StatusDeleted)}
	}
	return Patch{
		"subscription_status": string(StatusPastDue),
		"subscription_expiry": ev.NextRetryDate.Add(ExpirySlack).UnixMilli(),
	}
}

func cancelledPatch(ev Event) Patch {
	p := Patch{"subscription_status": string(StatusDeleted)}
	if !ev.CancellationDate.IsZero() {
		// Cancellation-effective dates are exact; no slack.
		p["subscription_expiry"] = ev.CancellationDate.UnixMilli()
	}
	return p
}

// normalizeStatus maps a provider-reported status string onto our lifecycle.
// Providers disagree on vocabulary; anything unrecognized on a live
// subscription is treated as active rather than dropped, because the event
// itself asserts the subscription exists.
func normalizeStatus(providerStatus string) Status {
	switch providerStatus {
	case "trialing", "trial":
		return StatusTrialing
	case "past_due", "pastdue":
		return StatusPastDue
	case "deleted", "cancelled", "canceled":
		return StatusDeleted
	default:
		return StatusActive
	}
}
