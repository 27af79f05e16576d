package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// LookupConfig points at the external IP-intelligence and exchange-rate
// services.
type LookupConfig struct {
	GeoBaseURL   string `env:"GEO_API_BASE_URL,required"`
	GeoAPIKey    string `env:"GEO_API_KEY,required"`
	RatesBaseURL string `env:"RATES_API_BASE_URL,required"`
}

// LookupClient implements Geolocator and RateSource against the external
// HTTP services. Both lookups sit behind process-local caches, so the
// client itself stays cache-free.
type LookupClient struct {
	config LookupConfig
	http   *http.Client
}

// LookupOption configures the client.
type LookupOption func(*LookupClient)

func WithHTTPClient(h *http.Client) LookupOption {
	return func(c *LookupClient) {
		if h != nil {
			c.http = h
		}
	}
}

// NewLookupClient creates the external-lookup client.
func NewLookupClient(cfg LookupConfig, opts ...LookupOption) *LookupClient {
	c := &LookupClient{
		config: cfg,
		http:   &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Locate resolves an IP through the geolocation service.
func (c *LookupClient) Locate(ctx context.Context, ip string) (Location, error) {
	u := fmt.Sprintf("%s/json/%s?key=%s", c.config.GeoBaseURL, url.PathEscape(ip), url.QueryEscape(c.config.GeoAPIKey))

	var out struct {
		CountryISO3 string `json:"country_iso3"`
		Continent   string `json:"continent_code"`
		Currency    string `json:"currency"`
		Proxy       bool   `json:"proxy"`
		Hosting     bool   `json:"hosting"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return Location{}, fmt.Errorf("geolocate %s: %w", ip, err)
	}

	return Location{
		CountryISO3: out.CountryISO3,
		Continent:   out.Continent,
		Currency:    out.Currency,
		Proxy:       out.Proxy,
		Hosting:     out.Hosting,
	}, nil
}

// Rates fetches the exchange-rate table for a base currency.
func (c *LookupClient) Rates(ctx context.Context, base string) (map[string]float64, error) {
	u := fmt.Sprintf("%s/latest?base=%s", c.config.RatesBaseURL, url.QueryEscape(base))

	var out struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("exchange rates for %s: %w", base, err)
	}
	if len(out.Rates) == 0 {
		return nil, fmt.Errorf("exchange rates for %s: empty table", base)
	}
	return out.Rates, nil
}

func (c *LookupClient) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
