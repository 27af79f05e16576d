package subscription

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/accountd/pkg/report"
)

// TeamSubscriptionView is a team owner's own team subscription as exposed to
// clients: present so the owner can administer it, nested so the client
// never treats the owner as personally entitled by it.
type TeamSubscriptionView struct {
	SubscriptionID string `json:"subscription_id,omitempty"`
	Status         Status `json:"subscription_status,omitempty"`
	SKU            string `json:"subscription_sku,omitempty"`
	PlanID         int    `json:"subscription_plan_id,omitempty"`
	Expiry         int64  `json:"subscription_expiry,omitempty"`
	Quantity       int    `json:"subscription_quantity,omitempty"`
}

// AccountView is the read-view shape served to client applications. It is a
// projection of stored metadata: top-level subscription fields are the ones
// the client may gate features on.
type AccountView struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	FeatureFlags map[string]bool `json:"feature_flags,omitempty"`
	Banned       bool            `json:"banned,omitempty"`

	SubscriptionStatus Status `json:"subscription_status,omitempty"`
	SubscriptionSKU    string `json:"subscription_sku,omitempty"`
	SubscriptionPlanID int    `json:"subscription_plan_id,omitempty"`
	SubscriptionExpiry int64  `json:"subscription_expiry,omitempty"`
	SubscriptionID     string `json:"subscription_id,omitempty"`

	TeamSubscription    *TeamSubscriptionView `json:"team_subscription,omitempty"`
	TeamMemberIDs       []string              `json:"team_member_ids,omitzero"`
	SubscriptionOwnerID string                `json:"subscription_owner_id,omitempty"`
}

// AccountView builds the read-view for one user.
//
// Two conversions happen here and only here:
//
//   - A team owner's own team subscription is relocated into the nested
//     team_subscription object and removed from the top level.
//   - A team member inherits the owner's subscription fields, but only while
//     the member's id sits within the first N entries of the owner's
//     team_member_ids, N being the paid seat count. Members pushed past the
//     paid bound by a downgrade hold no entitlement.
//
// A member whose owner link no longer resolves, or whose id is missing from
// the owner's list, is an inconsistency: it is reported and the stale link
// is dropped rather than granting access.
func (s *Service) AccountView(ctx context.Context, user *User) (AccountView, error) {
	if user == nil {
		return AccountView{}, ErrUserNotFound
	}

	m := user.Metadata
	view := AccountView{
		UserID:       user.ID,
		Email:        user.Email,
		FeatureFlags: m.FeatureFlags,
		Banned:       m.Banned,
	}

	if m.Shape() == ShapeTeamMember {
		return s.resolveOwnerLink(ctx, user, view)
	}

	if IsTeamPlanID(m.SubscriptionPlanID) {
		view.TeamSubscription = &TeamSubscriptionView{
			SubscriptionID: m.SubscriptionID,
			Status:         m.SubscriptionStatus,
			SKU:            m.SubscriptionSKU,
			PlanID:         m.SubscriptionPlanID,
			Expiry:         m.SubscriptionExpiry,
			Quantity:       m.SubscriptionQuantity,
		}
		view.TeamMemberIDs = m.TeamMemberIDs
		// Owners may also hold a seat on their own team.
		if m.SubscriptionOwnerID != "" {
			return s.resolveOwnerLink(ctx, user, view)
		}
		return view, nil
	}

	view.SubscriptionStatus = m.SubscriptionStatus
	view.SubscriptionSKU = m.SubscriptionSKU
	view.SubscriptionPlanID = m.SubscriptionPlanID
	view.SubscriptionExpiry = m.SubscriptionExpiry
	view.SubscriptionID = m.SubscriptionID
	return view, nil
}

// resolveOwnerLink resolves an owner link into inherited top-level
// subscription fields, or reports and drops the link when the member no
// longer occupies a paid seat.
func (s *Service) resolveOwnerLink(ctx context.Context, user *User, view AccountView) (AccountView, error) {
	ownerID := user.Metadata.SubscriptionOwnerID

	inherited, ok, err := s.inheritedSubscription(ctx, user.ID, ownerID)
	if err != nil {
		return AccountView{}, err
	}
	if !ok {
		s.reporter.Report(ctx, report.New(report.SeverityError, "data_inconsistency",
			"team member not present within owner's paid seats", map[string]any{
				"user_id":  user.ID,
				"owner_id": ownerID,
			}))
		if _, err := s.store.UpdateUserMetadata(ctx, user.ID, Patch{"subscription_owner_id": nil}); err != nil {
			return AccountView{}, fmt.Errorf("drop stale owner link for %s: %w", user.ID, err)
		}
		return view, nil
	}

	view.SubscriptionOwnerID = ownerID
	view.SubscriptionStatus = inherited.Status
	view.SubscriptionSKU = inherited.SKU
	view.SubscriptionPlanID = inherited.PlanID
	view.SubscriptionExpiry = inherited.Expiry
	view.SubscriptionID = inherited.SubscriptionID
	return view, nil
}

// inheritedSubscription copies the owner's subscription fields if memberID
// currently occupies one of the owner's paid seats. Only the first
// subscription_quantity entries of team_member_ids count as active seats.
func (s *Service) inheritedSubscription(ctx context.Context, memberID, ownerID string) (TeamSubscriptionView, bool, error) {
	owner, err := s.store.GetUserByID(ctx, ownerID)
	if err != nil {
		return TeamSubscriptionView{}, false, fmt.Errorf("load team owner %s: %w", ownerID, err)
	}
	if owner == nil {
		return TeamSubscriptionView{}, false, nil
	}

	om := owner.Metadata
	paid := om.TeamMemberIDs
	if om.SubscriptionQuantity > 0 && om.SubscriptionQuantity < len(paid) {
		paid = paid[:om.SubscriptionQuantity]
	}

	for _, id := range paid {
		if id == memberID {
			return TeamSubscriptionView{
				SubscriptionID: om.SubscriptionID,
				Status:         om.SubscriptionStatus,
				SKU:            om.SubscriptionSKU,
				PlanID:         om.SubscriptionPlanID,
				Expiry:         om.SubscriptionExpiry,
			}, true, nil
		}
	}
	return TeamSubscriptionView{}, false, nil
}
