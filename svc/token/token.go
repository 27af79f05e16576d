package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

// Config tunes account-data token issuance.
type Config struct {
	SigningKey string        `env:"ACCOUNT_JWT_SIGNING_KEY,required"`
	Issuer     string        `env:"ACCOUNT_JWT_ISSUER" envDefault:"accountd"`
	TTL        time.Duration `env:"ACCOUNT_JWT_TTL" envDefault:"1h"`
}

var (
	// ErrInvalidToken is returned for tokens that fail signature or
	// temporal validation.
	ErrInvalidToken = errors.New("invalid account token")
)

// Claims is the signed payload served to client applications: the
// registered claims plus the account read-view. Clients gate features on
// the view exactly as the server computed it - they never re-derive
// entitlement from raw metadata.
type Claims struct {
	jwt.RegisteredClaims
	Account subscription.AccountView `json:"account"`
}

// Issuer signs and parses account-data tokens with HS256.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates a token issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("token: signing key is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		key:    []byte(cfg.SigningKey),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs the account view for the client.
func (i *Issuer) Issue(view subscription.AccountView) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   view.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Account: view,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign account token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.key, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return &claims, nil
}
