package paddle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/accountd/pkg/retry"
)

// Config holds vendor API credentials and endpoints.
type Config struct {
	VendorID       string `env:"PADDLE_VENDOR_ID,required"`
	VendorAuthCode string `env:"PADDLE_VENDOR_AUTH_CODE,required"`
	PublicKey      string `env:"PADDLE_PUBLIC_KEY,required"`
	APIBaseURL     string `env:"PADDLE_API_BASE_URL" envDefault:"https://vendors.paddle.com/api/2.0"`
}

// Client calls the classic vendor API. All calls go through the shared
// retry policy; the API reports failures as success:false with HTTP 200,
// which is terminal, while transport errors and 5xx retry.
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

// NewClient creates a vendor API client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	policy := retry.DefaultPolicy()
	// Business errors come back as success:false with HTTP 200; another
	// attempt cannot change them.
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

// CancelSubscription cancels a subscription through the vendor API. The
// state change lands later via a subscription_cancelled webhook; this call
// only requests it.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return c.post(ctx, "/subscription/users_cancel", url.Values{
		"subscription_id": {subscriptionID},
	})
}

// UpdateSubscriptionQuantity changes the paid quantity of a subscription.
// billImmediately and prorate express the billing policy: upgrades charge
// the prorated difference now, downgrades take effect next cycle.
func (c *Client) UpdateSubscriptionQuantity(ctx context.Context, subscriptionID string, planID, quantity int, billImmediately, prorate bool) error {
	return c.post(ctx, "/subscription/users/update", url.Values{
		"subscription_id":  {subscriptionID},
		"plan_id":          {strconv.Itoa(planID)},
		"quantity":         {strconv.Itoa(quantity)},
		"bill_immediately": {strconv.FormatBool(billImmediately)},
		"prorate":          {strconv.FormatBool(prorate)},
	})
}

// apiResponse is the vendor API envelope.
type apiResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, form url.Values) error {
	form.Set("vendor_id", c.config.VendorID)
	form.Set("vendor_auth_code", c.config.VendorAuthCode)

	return retry.Do0(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.APIBaseURL+path, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", ErrUpstream, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %s returned HTTP %d", ErrUpstream, path, resp.StatusCode)
		}

		var parsed apiResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("%w: malformed response from %s", ErrUpstream, path)
		}
		if !parsed.Success {
			return &APIError{Op: path, Code: parsed.Error.Code, Message: parsed.Error.Message}
		}
		return nil
	})
}
