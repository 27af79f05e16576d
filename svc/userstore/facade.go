package userstore

import (
	"context"
	"errors"
	"log/slog"
	"reflect"

	"github.com/dmitrymomot/accountd/pkg/report"
	"github.com/dmitrymomot/accountd/pkg/retry"
	"github.com/dmitrymomot/accountd/svc/subscription"
)

// Facade fronts the identity-provider user store with retry and mirrors
// every write into the relational store.
//
// The identity provider is the source of truth. The mirror is best-effort
// and explicitly non-blocking: a mirror failure is reported to the operator
// channel and swallowed, never failing the primary write or the request.
// This is an eventual-consistency pattern, not a transaction.
type Facade struct {
	primary  subscription.Store
	mirror   Mirror
	reporter report.Reporter
	log      *slog.Logger
	policy   retry.Policy
}

// Option configures the facade.
type Option func(*Facade)

// WithMirror wires the relational mirror. Without one, the facade is just
// the retry wrapper around the primary store.
func WithMirror(m Mirror) Option {
	return func(f *Facade) { f.mirror = m }
}

func WithReporter(r report.Reporter) Option {
	return func(f *Facade) {
		if r != nil {
			f.reporter = r
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(f *Facade) {
		if log != nil {
			f.log = log
		}
	}
}

// WithRetryPolicy overrides the retry policy for primary-store calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(f *Facade) {
		p.Abort = abortUnrecoverable
		f.policy = p
	}
}

// NewFacade creates the store facade. Panics on a nil primary store.
func NewFacade(primary subscription.Store, opts ...Option) *Facade {
	if primary == nil {
		panic("userstore: primary store is required")
	}

	policy := retry.DefaultPolicy()
	policy.Abort = abortUnrecoverable

	f := &Facade{
		primary:  primary,
		reporter: report.NoopReporter{},
		log:      slog.Default(),
		policy:   policy,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// abortUnrecoverable stops retrying on API errors where another attempt
// cannot change the outcome, a 401 being the canonical case.
func abortUnrecoverable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unrecoverable()
}

func (f *Facade) GetUserByID(ctx context.Context, id string) (*subscription.User, error) {
	user, err := retry.Do(ctx, f.policy, func(ctx context.Context) (*subscription.User, error) {
		return f.primary.GetUserByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if user != nil {
		f.crossCheck(ctx, user)
	}
	return user, nil
}

func (f *Facade) GetUsersByEmail(ctx context.Context, email string) ([]subscription.User, error) {
	return retry.Do(ctx, f.policy, func(ctx context.Context) ([]subscription.User, error) {
		return f.primary.GetUsersByEmail(ctx, email)
	})
}

func (f *Facade) CreateUser(ctx context.Context, email string, meta subscription.Metadata) (*subscription.User, error) {
	user, err := retry.Do(ctx, f.policy, func(ctx context.Context) (*subscription.User, error) {
		return f.primary.CreateUser(ctx, email, meta)
	})
	if err != nil {
		return nil, err
	}
	f.mirrorWrite(ctx, user)
	return user, nil
}

func (f *Facade) UpdateUserMetadata(ctx context.Context, id string, patch subscription.Patch) (*subscription.User, error) {
	user, err := retry.Do(ctx, f.policy, func(ctx context.Context) (*subscription.User, error) {
		return f.primary.UpdateUserMetadata(ctx, id, patch)
	})
	if err != nil {
		return nil, err
	}
	f.mirrorWrite(ctx, user)
	return user, nil
}

// mirrorWrite pushes the authoritative post-write record into the mirror.
// Fire-and-forget relative to the response: failures are reported, never
// returned. The detached context outlives the request on purpose.
func (f *Facade) mirrorWrite(ctx context.Context, user *subscription.User) {
	if f.mirror == nil || user == nil {
		return
	}

	bg := context.WithoutCancel(ctx)
	u := *user
	go func() {
		if err := f.mirror.UpsertUser(bg, u); err != nil {
			f.log.ErrorContext(bg, "mirror write failed", "user_id", u.ID, "error", err)
			f.reporter.Report(bg, report.New(report.SeverityError, "mirror_write_failed",
				"relational mirror write failed", map[string]any{"user_id": u.ID}))
		}
	}()
}

// crossCheck compares the primary record against the mirror and reports
// divergence. It never corrects: divergence is resolved by manual
// intervention or background reconciliation, and it never blocks the read
// that detected it.
func (f *Facade) crossCheck(ctx context.Context, primary *subscription.User) {
	if f.mirror == nil {
		return
	}

	bg := context.WithoutCancel(ctx)
	p := *primary
	go func() {
		mirrored, err := f.mirror.GetUser(bg, p.ID)
		if err != nil || mirrored == nil {
			return // absent or unreachable mirror rows are not divergence
		}
		if !reflect.DeepEqual(mirrored.Metadata, p.Metadata) {
			f.reporter.Report(bg, report.New(report.SeverityWarning, "data_inconsistency",
				"mirror diverges from identity provider", map[string]any{"user_id": p.ID}))
		}
	}()
}
