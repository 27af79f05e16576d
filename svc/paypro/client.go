package paypro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/accountd/pkg/retry"
)

// Config holds provider credentials and endpoints.
type Config struct {
	IPNSecret       string `env:"PAYPRO_IPN_SECRET,required"`
	VendorAccountID int    `env:"PAYPRO_VENDOR_ACCOUNT_ID,required"`
	APISecretKey    string `env:"PAYPRO_API_SECRET_KEY,required"`
	APIBaseURL      string `env:"PAYPRO_API_BASE_URL" envDefault:"https://store.payproglobal.com/api"`
	CheckoutBaseURL string `env:"PAYPRO_CHECKOUT_BASE_URL" envDefault:"https://store.payproglobal.com/checkout"`

	// EncryptionKey and EncryptionIV protect dynamic checkout parameters
	// from tampering. Fixed per vendor account; 32 and 16 bytes.
	EncryptionKey string `env:"PAYPRO_ENCRYPTION_KEY,required"`
	EncryptionIV  string `env:"PAYPRO_ENCRYPTION_IV,required"`

	// SupportedCurrencies is the provider-side allowlist. Prices in other
	// currencies are converted to USD before checkout.
	SupportedCurrencies []string `env:"PAYPRO_SUPPORTED_CURRENCIES" envDefault:"USD,EUR,GBP"`
}

// Client calls the provider's management API.
type Client struct {
	config Config
	http   *http.Client
	policy retry.Policy
	log    *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRetryPolicy overrides attempt count and backoff. The APIError abort
// predicate is kept unless the policy brings its own.
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		if p.Abort == nil {
			p.Abort = c.policy.Abort
		}
		c.policy = p
	}
}

func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a provider API client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	policy := retry.DefaultPolicy()
	policy.Abort = func(err error) bool {
		var apiErr *APIError
		return errors.As(err, &apiErr)
	}

	c := &Client{
		config: cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		policy: policy,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CancelSubscription terminates a subscription through the provider API.
// The state change lands later via a SubscriptionTerminated IPN.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	subID, err := strconv.ParseInt(subscriptionID, 10, 64)
	if err != nil {
		return fmt.Errorf("paypro subscription id %q is not numeric: %w", subscriptionID, err)
	}

	return c.post(ctx, "/Subscriptions/Terminate", map[string]any{
		"vendorAccountId": c.config.VendorAccountID,
		"apiSecretKey":    c.config.APISecretKey,
		"subscriptionId":  subID,
	})
}

// apiResponse is the provider API envelope.
type apiResponse struct {
	IsSuccess bool     `json:"isSuccess"`
	Errors    []string `json:"errors"`
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return retry.Do0(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.APIBaseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", ErrUpstream, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %s returned HTTP %d", ErrUpstream, path, resp.StatusCode)
		}

		var parsed apiResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("%w: malformed response from %s", ErrUpstream, path)
		}
		if !parsed.IsSuccess {
			return &APIError{Op: path, Message: strings.Join(parsed.Errors, "; ")}
		}
		return nil
	})
}
