package subscription

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/accountd/pkg/report"
)

// AddTeamMember assigns a seat on the owner's team to memberID and links the
// member record back to the owner.
//
// Seat accounting counts reassignment locks: a seat freed by a removal stays
// unavailable for LicenseLockDuration, so quantity - members - activeLocks
// must leave room. Expired locks are pruned in the same write.
func (s *Service) AddTeamMember(ctx context.Context, ownerID, memberID string) error {
	owner, err := s.loadTeamOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	m := owner.Metadata
	if slices.Contains(m.TeamMemberIDs, memberID) {
		return nil // already on the team; idempotent
	}

	now := s.now()
	locks := m.ActiveLockedLicenses(now)
	if len(m.TeamMemberIDs)+len(locks) >= m.SubscriptionQuantity {
		return ErrNoSeatsAvailable
	}

	members := append(slices.Clone(m.TeamMemberIDs), memberID)
	if _, err := s.store.UpdateUserMetadata(ctx, ownerID, Patch{
		"team_member_ids": members,
		"locked_licenses": lockPatchValue(locks),
	}); err != nil {
		return fmt.Errorf("assign seat on team %s: %w", ownerID, err)
	}

	if _, err := s.store.UpdateUserMetadata(ctx, memberID, Patch{
		"subscription_owner_id": ownerID,
		"joined_team_at":        now.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("link member %s to team %s: %w", memberID, ownerID, err)
	}

	s.log.InfoContext(ctx, "added team member", "owner_id", ownerID, "member_id", memberID)
	return nil
}

// RemoveTeamMember frees a member's seat and starts the reassignment lock:
// the freed slot may not be given to a different member for
// LicenseLockDuration.
func (s *Service) RemoveTeamMember(ctx context.Context, ownerID, memberID string) error {
	owner, err := s.loadTeamOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	m := owner.Metadata
	idx := slices.Index(m.TeamMemberIDs, memberID)
	if idx < 0 {
		return ErrNotTeamMember
	}

	now := s.now()
	members := slices.Delete(slices.Clone(m.TeamMemberIDs), idx, idx+1)
	locks := append(m.ActiveLockedLicenses(now), now.UnixMilli())

	if _, err := s.store.UpdateUserMetadata(ctx, ownerID, Patch{
		"team_member_ids": members,
		"locked_licenses": locks,
	}); err != nil {
		return fmt.Errorf("free seat on team %s: %w", ownerID, err)
	}

	if _, err := s.store.UpdateUserMetadata(ctx, memberID, Patch{
		"subscription_owner_id": nil,
		"joined_team_at":        nil,
	}); err != nil {
		return fmt.Errorf("unlink member %s from team %s: %w", memberID, ownerID, err)
	}

	s.log.InfoContext(ctx, "removed team member", "owner_id", ownerID, "member_id", memberID)
	return nil
}

// UpdateTeamSize changes the paid seat count of a paddle-managed team
// subscription and waits for the webhook-driven confirmation to land.
//
// Validation: size must be at least 1, differ from the current quantity, and
// a downgrade may not shrink below the number of assigned member seats.
// Upgrades bill immediately and prorate; downgrades defer to the next cycle.
// Both policies are flags on the provider call, not billing math done here.
//
// After the provider accepts the update, the new quantity arrives through a
// subscription_updated webhook. We poll the user record for it; if it does
// not land within the budget the provider-side change may still have
// succeeded, so the timeout is reported as an anomaly and surfaced as an
// error - the system cannot confirm it synchronously.
func (s *Service) UpdateTeamSize(ctx context.Context, ownerID string, newSize int) error {
	owner, err := s.loadTeamOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	m := owner.Metadata
	if m.PaymentProvider != ProviderPaddle && m.PaymentProvider != "" {
		return ErrNotPaddleManaged
	}
	if s.paddle == nil {
		return fmt.Errorf("paddle API not configured")
	}

	if newSize < 1 || newSize == m.SubscriptionQuantity {
		return ErrInvalidQuantity
	}
	if newSize < len(m.TeamMemberIDs) {
		return ErrSeatsBelowAssigned
	}

	upgrade := newSize > m.SubscriptionQuantity
	if err := s.paddle.UpdateSubscriptionQuantity(ctx, m.SubscriptionID, m.SubscriptionPlanID,
		newSize, upgrade, upgrade); err != nil {
		return fmt.Errorf("provider team-size update: %w", err)
	}

	if err := s.awaitQuantity(ctx, ownerID, newSize); err != nil {
		s.reporter.Report(ctx, report.New(report.SeverityError, "confirmation_timeout",
			"team-size update not confirmed within polling budget", map[string]any{
				"owner_id":        ownerID,
				"subscription_id": m.SubscriptionID,
				"requested_size":  newSize,
			}))
		return err
	}

	s.log.InfoContext(ctx, "team size updated", "owner_id", ownerID, "quantity", newSize)
	return nil
}

// awaitQuantity polls the user record until subscription_quantity matches.
// Only the confirmation wait times out; the provider-side update, once sent,
// is not cancelled.
func (s *Service) awaitQuantity(ctx context.Context, ownerID string, want int) error {
	deadline := s.now().Add(s.confirmTimeout)
	ticker := time.NewTicker(s.confirmInterval)
	defer ticker.Stop()

	for {
		user, err := s.store.GetUserByID(ctx, ownerID)
		if err == nil && user != nil && user.Metadata.SubscriptionQuantity == want {
			return nil
		}

		if !s.now().Before(deadline) {
			return ErrConfirmationTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// loadTeamOwner loads a user and checks they own a team subscription.
func (s *Service) loadTeamOwner(ctx context.Context, ownerID string) (*User, error) {
	owner, err := s.store.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", ownerID, err)
	}
	if owner == nil {
		return nil, ErrUserNotFound
	}
	if owner.Metadata.Shape() != ShapeTeamOwner || !IsTeamPlanID(owner.Metadata.SubscriptionPlanID) {
		return nil, ErrNotTeamOwner
	}
	return owner, nil
}

// lockPatchValue keeps the locked_licenses field tidy: pruning to an empty
// list deletes the field instead of storing [].
func lockPatchValue(locks []int64) any {
	if len(locks) == 0 {
		return nil
	}
	return locks
}
