package subscription

import (
	"context"
	"fmt"
)

// Cancel cancels a user's subscription through whichever provider manages
// it. Older accounts predate the payment_provider field; those default to
// the legacy paddle provider. Manual subscriptions have no API to call and
// must be routed to human support.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	m := user.Metadata
	if !m.HasUsableSubscription() || m.SubscriptionID == "" {
		return ErrNoActiveSubscription
	}

	switch m.PaymentProvider {
	case ProviderManual:
		return ErrManualSubscription
	case ProviderPayPro:
		if s.paypro == nil {
			return fmt.Errorf("paypro API not configured")
		}
		if err := s.paypro.CancelSubscription(ctx, m.SubscriptionID); err != nil {
			return fmt.Errorf("paypro cancellation: %w", err)
		}
	default:
		// paddle, or unset on accounts that predate the field
		if s.paddle == nil {
			return fmt.Errorf("paddle API not configured")
		}
		if err := s.paddle.CancelSubscription(ctx, m.SubscriptionID); err != nil {
			return fmt.Errorf("paddle cancellation: %w", err)
		}
	}

	s.log.InfoContext(ctx, "subscription cancellation requested",
		"user_id", userID, "subscription_id", m.SubscriptionID, "provider", string(m.PaymentProvider))
	return nil
}
