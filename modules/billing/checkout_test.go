package billing_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingServesRegionalCatalog(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec, env := f.do(t, httptest.NewRequest(http.MethodGet, "/pricing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	// Client caching is bounded by the resolver's per-IP pin (a minute here).
	assert.Equal(t, "private, max-age=60", rec.Header().Get("Cache-Control"))

	assert.Equal(t, "USD", env.Response["currency"])

	products, ok := env.Response["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 4)

	bySKU := map[string]map[string]any{}
	for _, p := range products {
		entry := p.(map[string]any)
		bySKU[entry["sku"].(string)] = entry
	}

	proAnnual := bySKU["pro-annual"]
	require.NotNil(t, proAnnual)
	assert.Equal(t, float64(588160), proAnnual["product_id"])
	assert.Equal(t, 120.0, proAnnual["price"])
	assert.Equal(t, 10.0, proAnnual["monthly_price"])
	assert.Equal(t, "year", proAnnual["interval"])

	teamMonthly := bySKU["team-monthly"]
	require.NotNil(t, teamMonthly)
	assert.Equal(t, 22.0, teamMonthly["price"])
	assert.Equal(t, true, teamMonthly["team"])
	assert.Nil(t, teamMonthly["monthly_price"], "monthly plans carry no display price")
}

func TestCheckoutRedirectsToPaddle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	target := "/checkout?" + url.Values{
		"email":        {"buyer@example.com"},
		"sku":          {"team-monthly"},
		"quantity":     {"5"},
		"country":      {"US"},
		"source":       {"pricing-page"},
		"returnUrl":    {"https://app.example.com/done"},
		"discountCode": {"WELCOME10"},
	}.Encode()

	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(loc.Path, "/588161"), "redirect targets the team-monthly plan, got %s", loc)

	q := loc.Query()
	assert.Equal(t, "buyer@example.com", q.Get("guest_email"))
	assert.Equal(t, "USD:22", q.Get("prices[0]"), "regional price override rides along")
	assert.Equal(t, "5", q.Get("quantity"))
	assert.Equal(t, "WELCOME10", q.Get("coupon"))
	assert.Equal(t, "https://app.example.com/done", q.Get("return_url"))
}

func TestCheckoutRedirectsToPayPro(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	target := "/checkout?" + url.Values{
		"email":    {"buyer@example.com"},
		"sku":      {"pro-monthly"},
		"provider": {"paypro"},
	}.Encode()

	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), "https://secure.example/checkout"))
	assert.Equal(t, "74921", loc.Query().Get("products[1][id]"))
	assert.NotEmpty(t, loc.Query().Get("products[1][data]"), "dynamic parameters travel encrypted")
}

func TestCheckoutValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name  string
		query url.Values
	}{
		{"missing email", url.Values{"sku": {"pro-monthly"}}},
		{"unknown sku", url.Values{"email": {"x@example.com"}, "sku": {"enterprise"}}},
		{"zero quantity", url.Values{"email": {"x@example.com"}, "sku": {"pro-monthly"}, "quantity": {"0"}}},
		{"garbage quantity", url.Values{"email": {"x@example.com"}, "sku": {"pro-monthly"}, "quantity": {"many"}}},
		{"unknown provider", url.Values{"email": {"x@example.com"}, "sku": {"pro-monthly"}, "provider": {"stripe"}}},
		{"paypro discount code", url.Values{"email": {"x@example.com"}, "sku": {"pro-monthly"}, "provider": {"paypro"}, "discountCode": {"WELCOME10"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, env := f.do(t, httptest.NewRequest(http.MethodGet, "/checkout?"+tt.query.Encode(), nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}
