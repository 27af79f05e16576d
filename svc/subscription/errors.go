package subscription

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the given id or email.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoActiveSubscription is returned for billing operations on users
	// without an active or past_due subscription.
	ErrNoActiveSubscription = errors.New("no active subscription")

	// ErrManualSubscription is returned for API cancellation of manually
	// managed subscriptions; those are routed to human support. Terminal,
	// not retryable.
	ErrManualSubscription = errors.New("subscription is managed manually and cannot be cancelled via API")

	// ErrNotTeamOwner is returned for team operations on users who don't
	// own a team subscription.
	ErrNotTeamOwner = errors.New("user does not own a team subscription")

	// ErrNotPaddleManaged is returned for team-size changes on subscriptions
	// not managed by the paddle provider.
	ErrNotPaddleManaged = errors.New("subscription is not paddle-managed")

	// ErrInvalidQuantity is returned when a requested team size is below 1
	// or equal to the current size.
	ErrInvalidQuantity = errors.New("invalid team size")

	// ErrSeatsBelowAssigned is returned when a downgrade would shrink the
	// team below the number of currently assigned member seats.
	ErrSeatsBelowAssigned = errors.New("new team size is below assigned seats")

	// ErrNoSeatsAvailable is returned when adding a member would exceed the
	// paid seat count, counting seats still under a reassignment lock.
	ErrNoSeatsAvailable = errors.New("no seats available")

	// ErrNotTeamMember is returned when removing an id that is not on the team.
	ErrNotTeamMember = errors.New("user is not a member of this team")

	// ErrConfirmationTimeout is returned when a provider-side update was
	// issued but the webhook-driven confirmation did not land in the user
	// record within the polling budget. The provider-side change may still
	// have succeeded.
	ErrConfirmationTimeout = errors.New("timed out waiting for provider update confirmation")
)
