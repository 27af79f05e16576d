package paypro

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/accountd/pkg/report"
	"github.com/dmitrymomot/accountd/svc/pricing"
)

// CheckoutParams are the inputs to a checkout redirect.
type CheckoutParams struct {
	ProductID   int // provider's product id
	Price       float64
	Currency    string
	Quantity    int
	Email       string
	Country     string
	Source      string
	ReturnURL   string
	Passthrough string // opaque JSON echoed back on IPNs
}

// CheckoutBuilder constructs checkout redirect URLs.
//
// Dynamic per-checkout parameters (price override, quantity) must be opaque
// to the end user to prevent price tampering: they are encoded as a query
// string, AES-CBC encrypted with the vendor account's fixed key and IV,
// base64-encoded, and carried in a single product-data parameter next to
// the cleartext metadata.
type CheckoutBuilder struct {
	config   Config
	rates    *pricing.CachedRates
	reporter report.Reporter
	log      *slog.Logger
	block    cipher.Block
	iv       []byte
}

// NewCheckoutBuilder creates a builder. The rates source backs the USD
// fallback for currencies outside the provider allowlist.
func NewCheckoutBuilder(cfg Config, rates *pricing.CachedRates, reporter report.Reporter, log *slog.Logger) (*CheckoutBuilder, error) {
	block, err := aes.NewCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("paypro: encryption key: %w", err)
	}
	if len(cfg.EncryptionIV) != aes.BlockSize {
		return nil, fmt.Errorf("paypro: encryption IV must be %d bytes", aes.BlockSize)
	}
	if reporter == nil {
		reporter = report.NoopReporter{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &CheckoutBuilder{
		config:   cfg,
		rates:    rates,
		reporter: reporter,
		log:      log,
		block:    block,
		iv:       []byte(cfg.EncryptionIV),
	}, nil
}

// BuildCheckoutURL constructs the checkout redirect. Discount codes are
// unsupported by this provider and rejected outright.
func (b *CheckoutBuilder) BuildCheckoutURL(ctx context.Context, p CheckoutParams, discountCode string) (string, error) {
	if discountCode != "" {
		return "", ErrDiscountUnsupported
	}
	if p.ProductID == 0 {
		return "", fmt.Errorf("paypro checkout: product id is required")
	}
	if p.Email == "" {
		return "", fmt.Errorf("paypro checkout: email is required")
	}

	price, currency, err := b.normalizeCurrency(ctx, p.Price, p.Currency)
	if err != nil {
		return "", err
	}

	qty := p.Quantity
	if qty < 1 {
		qty = 1
	}

	// The tamper-sensitive parameters travel encrypted.
	dynamic := url.Values{}
	dynamic.Set("price-"+strings.ToLower(currency), trimFloat(price))
	dynamic.Set("qty", strconv.Itoa(qty))

	encrypted, err := b.encrypt(dynamic.Encode())
	if err != nil {
		return "", fmt.Errorf("paypro checkout: encrypt product data: %w", err)
	}

	q := url.Values{}
	q.Set("products[1][id]", strconv.Itoa(p.ProductID))
	q.Set("products[1][data]", encrypted)
	q.Set("billing-email", p.Email)
	if p.Country != "" {
		q.Set("billing-country", p.Country)
	}
	if p.Source != "" {
		q.Set("x-source", p.Source)
	}
	if p.ReturnURL != "" {
		q.Set("x-returnurl", p.ReturnURL)
	}
	if p.Passthrough != "" {
		q.Set("x-passthrough", p.Passthrough)
	}

	return b.config.CheckoutBaseURL + "?" + q.Encode(), nil
}

// normalizeCurrency enforces the provider's supported-currency allowlist.
// An unsupported currency should not normally reach checkout - the pricing
// tables only use supported ones - so the USD conversion is reported as an
// anomaly when it happens.
func (b *CheckoutBuilder) normalizeCurrency(ctx context.Context, price float64, currency string) (float64, string, error) {
	if slices.Contains(b.config.SupportedCurrencies, currency) {
		return price, currency, nil
	}

	b.reporter.Report(ctx, report.New(report.SeverityWarning, "unsupported_currency",
		"converting checkout price to USD for unsupported currency", map[string]any{
			"currency": currency,
		}))

	if b.rates == nil {
		return 0, "", fmt.Errorf("paypro checkout: currency %s unsupported and no rate source configured", currency)
	}
	converted, err := b.rates.Convert(ctx, price, currency, "USD")
	if err != nil {
		return 0, "", fmt.Errorf("paypro checkout: convert %s to USD: %w", currency, err)
	}
	return converted, "USD", nil
}

// encrypt runs AES-CBC with PKCS#7 padding over the plaintext and returns
// standard base64.
func (b *CheckoutBuilder) encrypt(plaintext string) (string, error) {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(b.block, b.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padding)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padding)
	}
	return out
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
