package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountd/pkg/report"
	"github.com/dmitrymomot/accountd/svc/subscription"
)

type capturingReporter struct {
	reports []report.Report
}

func (c *capturingReporter) Report(_ context.Context, r report.Report) {
	c.reports = append(c.reports, r)
}

func (c *capturingReporter) kinds() []string {
	out := make([]string, 0, len(c.reports))
	for _, r := range c.reports {
		out = append(out, r.Kind)
	}
	return out
}

func newTestService(t *testing.T, store subscription.Store, opts ...subscription.Option) *subscription.Service {
	t.Helper()
	return subscription.NewService(store, subscription.Config{
		ConfirmTimeout:  200 * time.Millisecond,
		ConfirmInterval: 10 * time.Millisecond,
	}, opts...)
}

func TestHandleEventAppliesPatch(t *testing.T) {
	t.Parallel()

	store := subscription.NewInMemStore()
	user := store.Seed(subscription.User{Email: "buyer@example.com"})
	svc := newTestService(t, store)

	err := svc.HandleEvent(context.Background(), subscription.Event{
		Type:           subscription.EventSubscriptionCreated,
		Provider:       subscription.ProviderPaddle,
		Email:          "Buyer@Example.com", // case-insensitive match
		SubscriptionID: "sub-1",
		PlanID:         588159,
		Status:         "active",
		NextBillDate:   date(2025, 1, 1),
	})
	require.NoError(t, err)

	stored, err := store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, subscription.StatusActive, stored.Metadata.SubscriptionStatus)
	assert.Equal(t, "sub-1", stored.Metadata.SubscriptionID)
	assert.Equal(t, "pro-monthly", stored.Metadata.SubscriptionSKU)
	assert.Equal(t, date(2025, 1, 2).UnixMilli(), stored.Metadata.SubscriptionExpiry)
}

func TestHandleEventCreatesUserOnFirstPurchase(t *testing.T) {
	t.Parallel()

	store := subscription.NewInMemStore()
	svc := newTestService(t, store)

	err := svc.HandleEvent(context.Background(), subscription.Event{
		Type:           subscription.EventSubscriptionCreated,
		Provider:       subscription.ProviderPayPro,
		Email:          "new@example.com",
		SubscriptionID: "77001",
		PlanID:         588160,
		NextBillDate:   date(2026, 1, 1),
	})
	require.NoError(t, err)

	users, err := store.GetUsersByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, subscription.StatusActive, users[0].Metadata.SubscriptionStatus)
	assert.Equal(t, subscription.ProviderPayPro, users[0].Metadata.PaymentProvider)
}

func TestHandleEventUnknownUserNonCreated(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, subscription.NewInMemStore())

	err := svc.HandleEvent(context.Background(), subscription.Event{
		Type:  subscription.EventPaymentSucceeded,
		Email: "ghost@example.com",
	})
	assert.ErrorIs(t, err, subscription.ErrUserNotFound)
}

func TestHandleEventUnknownTypeIsNoOp(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, subscription.NewInMemStore())

	err := svc.HandleEvent(context.Background(), subscription.Event{
		Type:  subscription.EventUnknown,
		Email: "whoever@example.com",
	})
	assert.NoError(t, err)
}

func TestHandleEventMissingEmail(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, subscription.NewInMemStore())

	err := svc.HandleEvent(context.Background(), subscription.Event{
		Type: subscription.EventSubscriptionCreated,
	})
	assert.Error(t, err)
}

func TestHandleEventDuplicateEmailsReported(t *testing.T) {
	t.Parallel()

	store := subscription.NewInMemStore()
	store.Seed(subscription.User{Email: "dup@example.com"})
	store.Seed(subscription.User{Email: "dup@example.com"})

	reporter := &capturingReporter{}
	svc := newTestService(t, store, subscription.WithReporter(reporter))

	err := svc.HandleEvent(context.Background(), subscription.Event{
		Type:         subscription.EventSubscriptionCreated,
		Email:        "dup@example.com",
		PlanID:       588159,
		NextBillDate: date(2025, 5, 1),
	})
	require.NoError(t, err)
	assert.Contains(t, reporter.kinds(), "duplicate_users")
}
