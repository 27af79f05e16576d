package billing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/accountd/pkg/report"
	"github.com/dmitrymomot/accountd/pkg/ttlcache"
	"github.com/dmitrymomot/accountd/svc/paddle"
	"github.com/dmitrymomot/accountd/svc/paypro"
	"github.com/dmitrymomot/accountd/svc/pricing"
	"github.com/dmitrymomot/accountd/svc/subscription"
	"github.com/dmitrymomot/accountd/svc/token"
)

// Deps are the collaborators the module routes requests to. All fields are
// required; New panics on missing ones to fail fast during startup.
type Deps struct {
	Subscriptions  *subscription.Service
	Store          subscription.Store
	Pricing        *pricing.Resolver
	PaddleVerifier *paddle.Verifier
	PayProVerifier *paypro.Validator
	PayProCheckout *paypro.CheckoutBuilder
	Tokens         *token.Issuer
	Auth           TokenVerifier
}

// Module serves the billing HTTP API.
type Module struct {
	subs           *subscription.Service
	store          subscription.Store
	pricing        *pricing.Resolver
	paddleVerifier *paddle.Verifier
	payproVerifier *paypro.Validator
	payproCheckout *paypro.CheckoutBuilder
	tokens         *token.Issuer
	auth           TokenVerifier
	authCache      *ttlcache.Cache[string, string]
	reporter       report.Reporter
	log            *slog.Logger
}

// Option configures the module.
type Option func(*Module)

func WithReporter(r report.Reporter) Option {
	return func(m *Module) {
		if r != nil {
			m.reporter = r
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// WithAuthCacheTTL overrides how long verified bearer tokens are cached.
func WithAuthCacheTTL(ttl time.Duration) Option {
	return func(m *Module) { m.authCache = ttlcache.New[string, string](ttl) }
}

// New creates the billing module.
func New(deps Deps, opts ...Option) *Module {
	switch {
	case deps.Subscriptions == nil:
		panic("billing: subscription service is required")
	case deps.Store == nil:
		panic("billing: user store is required")
	case deps.Pricing == nil:
		panic("billing: pricing resolver is required")
	case deps.PaddleVerifier == nil:
		panic("billing: paddle webhook verifier is required")
	case deps.PayProVerifier == nil:
		panic("billing: paypro IPN validator is required")
	case deps.PayProCheckout == nil:
		panic("billing: paypro checkout builder is required")
	case deps.Tokens == nil:
		panic("billing: token issuer is required")
	case deps.Auth == nil:
		panic("billing: token verifier is required")
	}

	m := &Module{
		subs:           deps.Subscriptions,
		store:          deps.Store,
		pricing:        deps.Pricing,
		paddleVerifier: deps.PaddleVerifier,
		payproVerifier: deps.PayProVerifier,
		payproCheckout: deps.PayProCheckout,
		tokens:         deps.Tokens,
		auth:           deps.Auth,
		authCache:      ttlcache.New[string, string](10 * time.Minute),
		reporter:       report.NoopReporter{},
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler returns the module's router, suitable for mounting.
func (m *Module) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhooks/paddle", m.handlePaddleWebhook)
	r.Post("/webhooks/paypro", m.handlePayProWebhook)

	r.Get("/pricing", m.handlePricing)
	r.Get("/checkout", m.handleCheckout)

	r.Post("/team/size", m.handleTeamSize)
	r.Post("/team/members", m.handleAddTeamMember)
	r.Delete("/team/members/{memberID}", m.handleRemoveTeamMember)

	r.Post("/subscription/cancel", m.handleCancel)

	r.Get("/account/data", m.handleAccountData)

	return r
}
