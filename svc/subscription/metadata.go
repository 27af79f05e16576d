package subscription

import "time"

// Status is the subscription lifecycle state stored on the user record.
// Transitions: none -> trialing -> active -> past_due -> deleted.
// deleted is terminal for a given subscription id; a fresh
// subscription_created starts a new id.
type Status string

const (
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusDeleted  Status = "deleted"
)

// Provider identifies which payment provider manages a subscription.
// Older accounts predate the field and leave it unset.
type Provider string

const (
	ProviderPaddle Provider = "paddle"
	ProviderPayPro Provider = "paypro"
	ProviderManual Provider = "manual"
)

// ExpirySlack pads provider-reported billing dates to tolerate timezone and
// renewal-timing uncertainty. Cancellation-effective dates are authoritative
// and get no slack.
const ExpirySlack = 24 * time.Hour

// LicenseLockDuration is how long a freed team seat stays locked after a
// member is removed before it may be reassigned.
const LicenseLockDuration = 48 * time.Hour

// Metadata is the app_metadata blob stored on the identity-provider user
// record. It is a tagged union selected by field presence; Shape() is the
// single place that narrowing happens.
type Metadata struct {
	FeatureFlags map[string]bool `json:"feature_flags,omitempty"`
	Banned       bool            `json:"banned,omitempty"`

	// Trial fields
	SubscriptionStatus Status `json:"subscription_status,omitempty"`
	SubscriptionSKU    string `json:"subscription_sku,omitempty"`
	// SubscriptionPlanID is the legacy numeric plan id. Deprecated in favor
	// of subscription_sku but must stay populated: older client builds still
	// read it.
	SubscriptionPlanID int   `json:"subscription_plan_id,omitempty"`
	SubscriptionExpiry int64 `json:"subscription_expiry,omitempty"` // epoch ms

	// Paying fields
	PaymentProvider      Provider `json:"payment_provider,omitempty"`
	SubscriptionID       string   `json:"subscription_id,omitempty"`
	SubscriptionQuantity int      `json:"subscription_quantity,omitempty"`
	LastReceiptURL       string   `json:"last_receipt_url,omitempty"`
	UpdateURL            string   `json:"update_url,omitempty"`
	CancelURL            string   `json:"cancel_url,omitempty"`

	// Team owner fields. A nil TeamMemberIDs means "never a team owner";
	// an empty non-nil slice means a team subscription with no members yet.
	// omitzero (not omitempty) so the empty list survives a round-trip.
	TeamMemberIDs  []string `json:"team_member_ids,omitzero"`
	LockedLicenses []int64  `json:"locked_licenses,omitempty"` // lock-start epoch ms

	// Team member fields. Owners may also be members of their own team.
	SubscriptionOwnerID string `json:"subscription_owner_id,omitempty"`
	JoinedTeamAt        int64  `json:"joined_team_at,omitempty"` // epoch ms
}

// Shape is the discriminant of the metadata union.
type Shape int

const (
	ShapeBase Shape = iota
	ShapeTrial
	ShapePaying
	ShapeTeamOwner
	ShapeTeamMember
)

// Shape narrows the union by field presence. Exactly one of
// Trial/Paying/TeamOwner or TeamMember applies at a time; TeamMember wins
// when both a subscription_owner_id and owner-side fields are present
// because members never carry owner-side data of their own.
func (m Metadata) Shape() Shape {
	switch {
	case m.SubscriptionOwnerID != "" && m.TeamMemberIDs == nil:
		return ShapeTeamMember
	case m.TeamMemberIDs != nil:
		return ShapeTeamOwner
	case m.SubscriptionID != "" || m.PaymentProvider != "":
		return ShapePaying
	case m.SubscriptionStatus != "":
		return ShapeTrial
	default:
		return ShapeBase
	}
}

// HasUsableSubscription reports whether the record carries its own
// non-terminated subscription. Team members inherit at read time and are
// not covered here.
func (m Metadata) HasUsableSubscription() bool {
	switch m.SubscriptionStatus {
	case StatusTrialing, StatusActive, StatusPastDue:
		return true
	default:
		return false
	}
}

// ActiveLockedLicenses returns the lock timestamps still within
// LicenseLockDuration of now. Expired locks are dropped.
func (m Metadata) ActiveLockedLicenses(now time.Time) []int64 {
	if len(m.LockedLicenses) == 0 {
		return nil
	}
	cutoff := now.Add(-LicenseLockDuration).UnixMilli()
	active := make([]int64, 0, len(m.LockedLicenses))
	for _, ts := range m.LockedLicenses {
		if ts > cutoff {
			active = append(active, ts)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return active
}

// AssignedSeats returns how many seat slots are unavailable for new members:
// current member ids plus seats still locked after a removal.
func (m Metadata) AssignedSeats(now time.Time) int {
	return len(m.TeamMemberIDs) + len(m.ActiveLockedLicenses(now))
}
