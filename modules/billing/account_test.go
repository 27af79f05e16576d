package billing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

func TestAuthenticatedEndpointsRequireBearer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/team/size"},
		{http.MethodPost, "/team/members"},
		{http.MethodDelete, "/team/members/member-1"},
		{http.MethodPost, "/subscription/cancel"},
		{http.MethodGet, "/account/data"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			t.Parallel()

			rec, env := f.do(t, httptest.NewRequest(ep.method, ep.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "no Authorization header")
			assert.False(t, env.Success)

			rec, _ = f.do(t, jsonRequest(ep.method, ep.path, "unknown-token", ""))
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "unverifiable token")
		})
	}
}

func TestAuthCachesVerifiedTokens(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.store.Seed(subscription.User{ID: "u1", Email: "buyer@example.com"})
	f.auth.tokens["cached-token"] = "u1"

	for range 3 {
		rec, _ := f.do(t, jsonRequest(http.MethodGet, "/account/data", "cached-token", ""))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, f.auth.calls, "verified tokens are served from cache")
}

func TestAuthFailuresAreNotCached(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.store.Seed(subscription.User{ID: "u1", Email: "buyer@example.com"})

	rec, _ := f.do(t, jsonRequest(http.MethodGet, "/account/data", "flappy-token", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// The token becomes valid (e.g. clock skew resolved); the next request
	// must reach the verifier instead of a cached rejection.
	f.auth.tokens["flappy-token"] = "u1"
	rec, _ = f.do(t, jsonRequest(http.MethodGet, "/account/data", "flappy-token", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.auth.calls)
}

func TestAccountDataServesSignedView(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.store.Seed(subscription.User{ID: "u1", Email: "buyer@example.com", Metadata: subscription.Metadata{
		SubscriptionStatus: subscription.StatusActive,
		SubscriptionSKU:    "pro-annual",
		SubscriptionPlanID: 588160,
		PaymentProvider:    subscription.ProviderPaddle,
		SubscriptionID:     "sub-11",
		FeatureFlags:       map[string]bool{"beta": true},
	}})
	f.auth.tokens["user-token"] = "u1"

	rec, env := f.do(t, jsonRequest(http.MethodGet, "/account/data", "user-token", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.Success)

	signed, _ := env.Response["token"].(string)
	require.NotEmpty(t, signed)

	claims, err := f.issuer.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1", claims.Account.UserID)
	assert.Equal(t, "buyer@example.com", claims.Account.Email)
	assert.Equal(t, subscription.StatusActive, claims.Account.SubscriptionStatus)
	assert.Equal(t, "pro-annual", claims.Account.SubscriptionSKU)
	assert.True(t, claims.Account.FeatureFlags["beta"])
}

func TestAccountDataTeamMemberInheritsEntitlement(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ownerID, _ := f.seedTeamOwner(t)
	f.auth.tokens["member-token"] = "member-1"

	rec, env := f.do(t, jsonRequest(http.MethodGet, "/account/data", "member-token", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	signed, _ := env.Response["token"].(string)
	claims, err := f.issuer.Parse(signed)
	require.NoError(t, err)

	assert.Equal(t, ownerID, claims.Account.SubscriptionOwnerID)
	assert.Equal(t, subscription.StatusActive, claims.Account.SubscriptionStatus, "member inherits the owner's entitlement")
	assert.Equal(t, "team-monthly", claims.Account.SubscriptionSKU)
}

func TestAccountDataUnknownUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Token verifies but the user record is gone.
	f.auth.tokens["orphan-token"] = "deleted-user"

	rec, env := f.do(t, jsonRequest(http.MethodGet, "/account/data", "orphan-token", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}
