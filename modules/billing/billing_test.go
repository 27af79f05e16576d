package billing_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountd/modules/billing"
	"github.com/dmitrymomot/accountd/pkg/phpserialize"
	"github.com/dmitrymomot/accountd/pkg/report"
	"github.com/dmitrymomot/accountd/svc/paddle"
	"github.com/dmitrymomot/accountd/svc/paypro"
	"github.com/dmitrymomot/accountd/svc/pricing"
	"github.com/dmitrymomot/accountd/svc/subscription"
	"github.com/dmitrymomot/accountd/svc/token"
)

const ipnSecret = "ipn-secret"

// paddleSigner signs webhook forms the way the vendor does: sorted keys,
// PHP serialization, RSA-SHA1, base64.
type paddleSigner struct {
	key *rsa.PrivateKey
	pem string
}

func newPaddleSigner(t *testing.T) *paddleSigner {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return &paddleSigner{key: key, pem: string(pemKey)}
}

func (s *paddleSigner) signedForm(t *testing.T, fields map[string]string) url.Values {
	t.Helper()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]phpserialize.Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, phpserialize.Pair{Key: k, Value: fields[k]})
	}

	digest := sha1.Sum(phpserialize.MarshalStringMap(pairs))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest[:])
	require.NoError(t, err)

	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	form.Set("p_signature", base64.StdEncoding.EncodeToString(sig))
	return form
}

// signedIPN signs IPN forms with the provider's fixed-tuple SHA-256 scheme.
func signedIPN(fields map[string]string) url.Values {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}

	sum := sha256.Sum256([]byte(
		form.Get("ORDER_ID") +
			form.Get("ORDER_STATUS") +
			form.Get("ORDER_TOTAL_AMOUNT") +
			form.Get("CUSTOMER_EMAIL") +
			ipnSecret +
			form.Get("TEST_MODE") +
			form.Get("IPN_TYPE_NAME"),
	))
	form.Set("SIGNATURE", hex.EncodeToString(sum[:]))
	return form
}

// stubAuth resolves scripted bearer tokens and counts lookups so tests can
// observe the module's auth cache.
type stubAuth struct {
	calls  int
	tokens map[string]string // bearer token -> user id
}

func (a *stubAuth) UserID(_ context.Context, bearerToken string) (string, error) {
	a.calls++
	id, ok := a.tokens[bearerToken]
	if !ok {
		return "", &authError{}
	}
	return id, nil
}

type authError struct{}

func (*authError) Error() string { return "token rejected" }

type fakePaddleAPI struct {
	cancelled []string
	updateErr error
	onUpdate  func(quantity int)
}

func (f *fakePaddleAPI) CancelSubscription(_ context.Context, subscriptionID string) error {
	f.cancelled = append(f.cancelled, subscriptionID)
	return nil
}

func (f *fakePaddleAPI) UpdateSubscriptionQuantity(_ context.Context, _ string, _, quantity int, _, _ bool) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.onUpdate != nil {
		f.onUpdate(quantity)
	}
	return nil
}

type fakePayProAPI struct {
	cancelled []string
}

func (f *fakePayProAPI) CancelSubscription(_ context.Context, subscriptionID string) error {
	f.cancelled = append(f.cancelled, subscriptionID)
	return nil
}

// reportSink collects operator reports for assertions.
type reportSink struct {
	mu      sync.Mutex
	reports []report.Report
}

func (s *reportSink) Report(_ context.Context, r report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

func (s *reportSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r.Kind)
	}
	return out
}

// fixture wires a complete module over in-memory collaborators.
type fixture struct {
	store      *subscription.InMemStore
	signer     *paddleSigner
	auth       *stubAuth
	issuer     *token.Issuer
	reporter   *reportSink
	fakePaddle *fakePaddleAPI
	fakePaypro *fakePayProAPI
	handler    http.Handler
}

type staticGeo struct{ loc pricing.Location }

func (g staticGeo) Locate(context.Context, string) (pricing.Location, error) {
	return g.loc, nil
}

func newFixture(t *testing.T) *fixture {
	mem := subscription.NewInMemStore()
	return newFixtureOver(t, mem, mem)
}

// newFixtureOver wires the module over an explicit Store so tests can
// interpose failures between the handlers and the in-memory state.
func newFixtureOver(t *testing.T, mem *subscription.InMemStore, store subscription.Store) *fixture {
	t.Helper()

	fakePaddle := &fakePaddleAPI{}
	fakePaypro := &fakePayProAPI{}

	svc := subscription.NewService(store, subscription.Config{
		ConfirmTimeout:  200 * time.Millisecond,
		ConfirmInterval: 10 * time.Millisecond,
	}, subscription.WithPaddleAPI(fakePaddle), subscription.WithPayProAPI(fakePaypro))

	tables, err := pricing.LoadTables("../../config/pricing.yml")
	require.NoError(t, err)
	resolver := pricing.NewResolver(tables, staticGeo{loc: pricing.Location{
		CountryISO3: "USA", Continent: "NA", Currency: "USD",
	}}, time.Minute)

	signer := newPaddleSigner(t)
	paddleVerifier, err := paddle.NewVerifier(signer.pem)
	require.NoError(t, err)

	payproCheckout, err := paypro.NewCheckoutBuilder(paypro.Config{
		IPNSecret:           ipnSecret,
		VendorAccountID:     555,
		APISecretKey:        "api-secret",
		CheckoutBaseURL:     "https://secure.example/checkout",
		EncryptionKey:       "0123456789abcdef0123456789abcdef",
		EncryptionIV:        "fedcba9876543210",
		SupportedCurrencies: []string{"USD", "EUR", "GBP"},
	}, nil, nil, nil)
	require.NoError(t, err)

	issuer, err := token.NewIssuer(token.Config{SigningKey: "test-signing-key", Issuer: "accountd", TTL: time.Hour})
	require.NoError(t, err)

	auth := &stubAuth{tokens: map[string]string{}}
	sink := &reportSink{}

	mod := billing.New(billing.Deps{
		Subscriptions:  svc,
		Store:          store,
		Pricing:        resolver,
		PaddleVerifier: paddleVerifier,
		PayProVerifier: paypro.NewValidator(ipnSecret),
		PayProCheckout: payproCheckout,
		Tokens:         issuer,
		Auth:           auth,
	}, billing.WithAuthCacheTTL(time.Minute), billing.WithReporter(sink))

	return &fixture{
		store:      mem,
		signer:     signer,
		auth:       auth,
		issuer:     issuer,
		reporter:   sink,
		fakePaddle: fakePaddle,
		fakePaypro: fakePaypro,
		handler:    mod.Handler(),
	}
}

// envelope is the module's uniform JSON response shape.
type envelope struct {
	Success  bool           `json:"success"`
	Response map[string]any `json:"response"`
	Error    string         `json:"error"`
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, path, bearer, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

// seedTeamOwner puts a paddle-managed team subscription with one member into
// the store and authorizes a bearer token for the owner.
func (f *fixture) seedTeamOwner(t *testing.T) (ownerID string, bearer string) {
	t.Helper()

	owner := f.store.Seed(subscription.User{
		ID:    "owner-1",
		Email: "owner@example.com",
		Metadata: subscription.Metadata{
			SubscriptionStatus:   subscription.StatusActive,
			SubscriptionSKU:      "team-monthly",
			SubscriptionPlanID:   588161,
			PaymentProvider:      subscription.ProviderPaddle,
			SubscriptionID:       "sub-901",
			SubscriptionQuantity: 2,
			TeamMemberIDs:        []string{"member-1"},
		},
	})
	f.store.Seed(subscription.User{ID: "member-1", Email: "m1@example.com", Metadata: subscription.Metadata{
		SubscriptionOwnerID: owner.ID,
		JoinedTeamAt:        time.Now().Add(-time.Hour).UnixMilli(),
	}})
	f.store.Seed(subscription.User{ID: "member-2", Email: "m2@example.com"})

	f.auth.tokens["owner-token"] = owner.ID
	return owner.ID, "owner-token"
}
