package subscription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

func TestPatchApplyTo(t *testing.T) {
	t.Parallel()

	t.Run("absent keys keep their values", func(t *testing.T) {
		t.Parallel()

		current := subscription.Metadata{
			SubscriptionStatus: subscription.StatusActive,
			SubscriptionID:     "sub-1",
			SubscriptionExpiry: 1700000000000,
		}
		out, err := subscription.Patch{
			"subscription_status": "past_due",
		}.ApplyTo(current)
		require.NoError(t, err)

		assert.Equal(t, subscription.StatusPastDue, out.SubscriptionStatus)
		assert.Equal(t, "sub-1", out.SubscriptionID)
		assert.Equal(t, int64(1700000000000), out.SubscriptionExpiry)
	})

	t.Run("nil values delete fields", func(t *testing.T) {
		t.Parallel()

		current := subscription.Metadata{
			SubscriptionOwnerID: "user|000001",
			JoinedTeamAt:        1700000000000,
			SubscriptionStatus:  subscription.StatusActive,
		}
		out, err := subscription.Patch{
			"subscription_owner_id": nil,
			"joined_team_at":        nil,
		}.ApplyTo(current)
		require.NoError(t, err)

		assert.Empty(t, out.SubscriptionOwnerID)
		assert.Zero(t, out.JoinedTeamAt)
		assert.Equal(t, subscription.StatusActive, out.SubscriptionStatus)
	})

	t.Run("deleting an absent field is a no-op", func(t *testing.T) {
		t.Parallel()

		out, err := subscription.Patch{"cancel_url": nil}.ApplyTo(subscription.Metadata{})
		require.NoError(t, err)
		assert.Equal(t, subscription.Metadata{}, out)
	})

	t.Run("empty member list survives the round-trip", func(t *testing.T) {
		t.Parallel()

		out, err := subscription.Patch{
			"team_member_ids": []string{},
		}.ApplyTo(subscription.Metadata{})
		require.NoError(t, err)

		require.NotNil(t, out.TeamMemberIDs)
		assert.Empty(t, out.TeamMemberIDs)
		assert.Equal(t, subscription.ShapeTeamOwner, out.Shape())
	})

	t.Run("unknown keys are preserved silently", func(t *testing.T) {
		t.Parallel()

		// The identity provider may hold fields this service does not model;
		// patching must not fail because of them.
		out, err := subscription.Patch{"some_future_field": "x"}.ApplyTo(subscription.Metadata{})
		require.NoError(t, err)
		assert.Equal(t, subscription.Metadata{}, out)
	})
}

func TestPatchClone(t *testing.T) {
	t.Parallel()

	p := subscription.Patch{"subscription_status": "active"}
	c := p.Clone()
	c["subscription_status"] = "deleted"

	assert.Equal(t, "active", p["subscription_status"])
	assert.Nil(t, subscription.Patch(nil).Clone())
}

func TestPatchIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, subscription.Patch{}.IsEmpty())
	assert.True(t, subscription.Patch(nil).IsEmpty())
	assert.False(t, subscription.Patch{"a": 1}.IsEmpty())
}
