package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/accountd/pkg/report"
)

// PaddleAPI is the slice of the legacy provider's vendor API this service
// calls. Implemented by svc/paddle.
type PaddleAPI interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// UpdateSubscriptionQuantity changes the paid seat count. Billing policy
	// is expressed through the flags, not computed here: upgrades bill
	// immediately and prorate, downgrades defer to the next cycle.
	UpdateSubscriptionQuantity(ctx context.Context, subscriptionID string, planID, quantity int, billImmediately, prorate bool) error
}

// PayProAPI is the slice of the secondary provider's API this service calls.
// Implemented by svc/paypro.
type PayProAPI interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Config tunes the service. The poll settings bound the wait for a
// webhook-driven confirmation after a provider-side update.
type Config struct {
	ConfirmTimeout  time.Duration `env:"SUBSCRIPTION_CONFIRM_TIMEOUT" envDefault:"30s"`
	ConfirmInterval time.Duration `env:"SUBSCRIPTION_CONFIRM_INTERVAL" envDefault:"500ms"`
}

// Service is the subscription state reconciliation engine: it converts
// validated webhook events and team-membership operations into consistent
// user metadata.
type Service struct {
	store    Store
	paddle   PaddleAPI
	paypro   PayProAPI
	reporter report.Reporter
	log      *slog.Logger

	confirmTimeout  time.Duration
	confirmInterval time.Duration

	now func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithPaddleAPI wires the legacy provider client. Required for cancellation
// and team-size operations on paddle-managed subscriptions.
func WithPaddleAPI(api PaddleAPI) Option {
	return func(s *Service) { s.paddle = api }
}

// WithPayProAPI wires the secondary provider client.
func WithPayProAPI(api PayProAPI) Option {
	return func(s *Service) { s.paypro = api }
}

func WithReporter(r report.Reporter) Option {
	return func(s *Service) {
		if r != nil {
			s.reporter = r
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithNowFunc overrides the clock. Tests only.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the reconciliation service. Panics on a nil store to
// fail fast during initialization.
func NewService(store Store, cfg Config, opts ...Option) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}

	s := &Service{
		store:           store,
		reporter:        report.NoopReporter{},
		log:             slog.Default(),
		confirmTimeout:  cfg.ConfirmTimeout,
		confirmInterval: cfg.ConfirmInterval,
		now:             time.Now,
	}
	if s.confirmTimeout <= 0 {
		s.confirmTimeout = 30 * time.Second
	}
	if s.confirmInterval <= 0 {
		s.confirmInterval = 500 * time.Millisecond
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleEvent applies one validated webhook event to the user store.
//
// Events are keyed by email, so this is a read-modify-write: load the user,
// build the patch against their current metadata, write it back. A created
// event for an unknown email creates the user - checkout happens before any
// account exists for some buyers.
//
// Unknown event types are acknowledged as no-ops. Returning an error here
// would make the provider redeliver forever.
func (s *Service) HandleEvent(ctx context.Context, ev Event) error {
	if ev.Type == EventUnknown {
		s.log.InfoContext(ctx, "ignoring unhandled webhook event",
			"provider", string(ev.Provider), "raw_event", ev.Raw["alert_name"])
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(ev.Email))
	if email == "" {
		return fmt.Errorf("webhook event %s carries no email", ev.Type)
	}

	users, err := s.store.GetUsersByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", email, err)
	}

	if len(users) > 1 {
		s.reporter.Report(ctx, report.New(report.SeverityError, "duplicate_users",
			"multiple user records share one email", map[string]any{"email": email}))
	}

	if len(users) == 0 {
		if ev.Type != EventSubscriptionCreated {
			return fmt.Errorf("no user for email %s on %s event: %w", email, ev.Type, ErrUserNotFound)
		}
		meta, err := BuildPatch(Metadata{}, ev).ApplyTo(Metadata{})
		if err != nil {
			return fmt.Errorf("build metadata for new user: %w", err)
		}
		if _, err := s.store.CreateUser(ctx, email, meta); err != nil {
			return fmt.Errorf("create user %s: %w", email, err)
		}
		s.log.InfoContext(ctx, "created user from webhook", "email", email, "event", string(ev.Type))
		return nil
	}

	user := users[0]
	patch := BuildPatch(user.Metadata, ev)
	if patch.IsEmpty() {
		return nil
	}

	if _, err := s.store.UpdateUserMetadata(ctx, user.ID, patch); err != nil {
		return fmt.Errorf("apply %s patch to user %s: %w", ev.Type, user.ID, err)
	}

	s.log.InfoContext(ctx, "applied webhook event",
		"event", string(ev.Type), "user_id", user.ID, "subscription_id", ev.SubscriptionID)
	return nil
}
