package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/accountd/pkg/ttlcache"
)

// RateSource is the live exchange-rate collaborator: given a base currency,
// it returns the rate table to other currencies.
type RateSource interface {
	Rates(ctx context.Context, base string) (map[string]float64, error)
}

// CachedRates wraps a RateSource with a process-local TTL cache. Concurrent
// requests for an uncached base perform redundant upstream lookups; that is
// accepted, the lookup is idempotent and cheap compared to the locking it
// would take to deduplicate.
type CachedRates struct {
	src   RateSource
	cache *ttlcache.Cache[string, map[string]float64]
}

// NewCachedRates creates the caching wrapper.
func NewCachedRates(src RateSource, ttl time.Duration) *CachedRates {
	if src == nil {
		panic("pricing: RateSource is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedRates{
		src:   src,
		cache: ttlcache.New[string, map[string]float64](ttl),
	}
}

// Convert converts an amount between currencies using live rates.
func (c *CachedRates) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}

	rates, ok := c.cache.Get(from)
	if !ok {
		var err error
		rates, err = c.src.Rates(ctx, from)
		if err != nil {
			return 0, fmt.Errorf("fetch exchange rates for %s: %w", from, err)
		}
		c.cache.Set(from, rates)
	}

	rate, ok := rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no exchange rate from %s to %s", from, to)
	}
	return amount * rate, nil
}
