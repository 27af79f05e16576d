package userstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

// Config holds identity-provider API credentials and endpoints.
type Config struct {
	BaseURL  string `env:"USERSTORE_BASE_URL,required"`  // management API root
	APIToken string `env:"USERSTORE_API_TOKEN,required"` // management API bearer token
}

// Client talks to the identity provider's management API. It implements the
// raw store contract; production code wraps it in a Facade for retry and
// mirroring rather than using it directly.
type Client struct {
	config Config
	http   *http.Client
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

// NewClient creates a management API client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		config: cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiUser is the provider's wire shape for a user record. Subscription
// state lives in app_metadata, which end users cannot modify themselves.
type apiUser struct {
	UserID      string                `json:"user_id"`
	Email       string                `json:"email"`
	AppMetadata subscription.Metadata `json:"app_metadata"`
}

func (u apiUser) domain() *subscription.User {
	return &subscription.User{ID: u.UserID, Email: u.Email, Metadata: u.AppMetadata}
}

// GetUserByID returns (nil, nil) for unknown ids.
func (c *Client) GetUserByID(ctx context.Context, id string) (*subscription.User, error) {
	var out apiUser
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &out)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.domain(), nil
}

func (c *Client) GetUsersByEmail(ctx context.Context, email string) ([]subscription.User, error) {
	var out []apiUser
	path := "/users-by-email?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	users := make([]subscription.User, 0, len(out))
	for _, u := range out {
		users = append(users, *u.domain())
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, email string, meta subscription.Metadata) (*subscription.User, error) {
	var out apiUser
	err := c.do(ctx, http.MethodPost, "/users", map[string]any{
		"email":        email,
		"app_metadata": meta,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.domain(), nil
}

// UpdateUserMetadata patches app_metadata. The provider merges the patch
// key by key and treats explicit nulls as deletions, which is exactly the
// Patch contract, so the patch goes over the wire unchanged.
func (c *Client) UpdateUserMetadata(ctx context.Context, id string, patch subscription.Patch) (*subscription.User, error) {
	var out apiUser
	err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), map[string]any{
		"app_metadata": patch,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.domain(), nil
}

// UserID resolves an end-user bearer token through the userinfo endpoint.
// Satisfies the HTTP module's token verifier contract.
func (c *Client) UserID(ctx context.Context, bearerToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/userinfo", nil)
	if err != nil {
		return "", fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("userinfo: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return "", fmt.Errorf("userinfo: malformed response: %w", err)
	}
	if claims.Sub == "" {
		return "", fmt.Errorf("userinfo: response carries no subject")
	}
	return claims.Sub, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: malformed response: %w", method, path, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
