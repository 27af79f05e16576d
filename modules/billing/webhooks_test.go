package billing_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

func paddleCreatedFields() map[string]string {
	return map[string]string{
		"alert_name":           "subscription_created",
		"email":                "buyer@example.com",
		"subscription_id":      "4021",
		"subscription_plan_id": "588159",
		"status":               "active",
		"next_bill_date":       "2026-01-01",
		"quantity":             "1",
	}
}

func TestPaddleWebhookAppliesEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	form := f.signer.signedForm(t, paddleCreatedFields())
	rec, env := f.do(t, formRequest("/webhooks/paddle", form))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	receiptID, _ := env.Response["receipt_id"].(string)
	_, err := uuid.Parse(receiptID)
	assert.NoError(t, err, "receipt id is a uuid")

	users, err := f.store.GetUsersByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, users, 1, "first purchase creates the user")
	assert.Equal(t, "4021", users[0].Metadata.SubscriptionID)
	assert.Equal(t, "pro-monthly", users[0].Metadata.SubscriptionSKU)
}

func TestPaddleWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	form := f.signer.signedForm(t, paddleCreatedFields())
	form.Set("email", "attacker@example.com")

	rec, env := f.do(t, formRequest("/webhooks/paddle", form))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid signature", env.Error)

	users, err := f.store.GetUsersByEmail(context.Background(), "attacker@example.com")
	require.NoError(t, err)
	assert.Empty(t, users, "rejected webhooks never reach the store")
}

func TestPaddleWebhookMalformedBody(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", strings.NewReader("%zz=bad"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, env := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestPaddleWebhookUnknownUserStillAcknowledged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	fields := map[string]string{
		"alert_name":      "subscription_payment_succeeded",
		"email":           "ghost@example.com",
		"subscription_id": "4022",
		"status":          "active",
		"next_bill_date":  "2026-02-01",
	}
	rec, env := f.do(t, formRequest("/webhooks/paddle", f.signer.signedForm(t, fields)))

	// The signature checked out, so the event must be acknowledged even
	// though it targets nobody; anything else makes the provider redeliver.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, f.reporter.kinds(), "webhook_processing_failed")

	users, err := f.store.GetUsersByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, users, "non-create events never create users")
}

// faultyStore fails metadata writes while leaving reads intact.
type faultyStore struct {
	subscription.Store
	writeErr error
}

func (s *faultyStore) UpdateUserMetadata(context.Context, string, subscription.Patch) (*subscription.User, error) {
	return nil, s.writeErr
}

func TestPaddleWebhookStoreFailureStillAcknowledged(t *testing.T) {
	t.Parallel()

	mem := subscription.NewInMemStore()
	f := newFixtureOver(t, mem, &faultyStore{Store: mem, writeErr: errors.New("store unavailable")})
	mem.Seed(subscription.User{ID: "u1", Email: "buyer@example.com", Metadata: subscription.Metadata{
		SubscriptionStatus: subscription.StatusActive,
		SubscriptionSKU:    "pro-monthly",
		SubscriptionPlanID: 588159,
		SubscriptionID:     "4021",
	}})

	fields := map[string]string{
		"alert_name":      "subscription_payment_succeeded",
		"email":           "buyer@example.com",
		"subscription_id": "4021",
		"status":          "active",
		"next_bill_date":  "2026-03-01",
	}
	rec, env := f.do(t, formRequest("/webhooks/paddle", f.signer.signedForm(t, fields)))

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Response["receipt_id"])
	assert.Contains(t, f.reporter.kinds(), "webhook_processing_failed", "the lost write is reported, not retried")
}

func TestPayProWebhookAppliesEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	form := signedIPN(map[string]string{
		"IPN_TYPE_NAME":                 "OrderCharged",
		"ORDER_ID":                      "90001",
		"ORDER_STATUS":                  "Processed",
		"ORDER_TOTAL_AMOUNT":            "120.00",
		"CUSTOMER_EMAIL":                "buyer@example.com",
		"TEST_MODE":                     "0",
		"SUBSCRIPTION_ID":               "77001",
		"PRODUCT_SKU":                   "pro-annual",
		"SUBSCRIPTION_NEXT_CHARGE_DATE": "2026-01-01 00:00:00",
	})

	rec, env := f.do(t, formRequest("/webhooks/paypro", form))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Response["receipt_id"])

	users, err := f.store.GetUsersByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "77001", users[0].Metadata.SubscriptionID)
	assert.Equal(t, "pro-annual", users[0].Metadata.SubscriptionSKU)
}

func TestPayProWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	form := signedIPN(map[string]string{
		"IPN_TYPE_NAME":      "OrderCharged",
		"ORDER_ID":           "90001",
		"ORDER_STATUS":       "Processed",
		"ORDER_TOTAL_AMOUNT": "120.00",
		"CUSTOMER_EMAIL":     "buyer@example.com",
		"TEST_MODE":          "0",
	})
	form.Set("ORDER_TOTAL_AMOUNT", "0.01")

	rec, env := f.do(t, formRequest("/webhooks/paypro", form))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, env.Success)
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	fields := map[string]string{
		"alert_name": "payment_dispute_created",
		"email":      "buyer@example.com",
	}
	rec, env := f.do(t, formRequest("/webhooks/paddle", f.signer.signedForm(t, fields)))

	// Unknown-but-authentic events are acknowledged so the provider stops
	// redelivering them.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}
