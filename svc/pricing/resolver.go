package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/accountd/pkg/ttlcache"
)

// Config tunes the resolver.
type Config struct {
	TablesPath string        `env:"PRICING_TABLES_PATH" envDefault:"config/pricing.yml"`
	CacheTTL   time.Duration `env:"PRICING_CACHE_TTL" envDefault:"6h"`
}

// Resolver maps a client IP to the pricing table that applies to it.
//
// Resolution order is strict: exact country table, then continent table,
// then the first configured table whose currency matches the resolved
// currency, then the default flat-USD table. IPs flagged as proxy or
// hosting traffic always get the default table - region discounts are an
// arbitrage target otherwise.
//
// Resolved tables are cached per IP so a user's price cannot change between
// viewing the pricing page and completing checkout. Entries are never
// invalidated early; a stale price beats an inconsistent one mid-checkout.
type Resolver struct {
	tables []Table
	geo    Geolocator
	cache  *ttlcache.Cache[string, Table]
	ttl    time.Duration
	log    *slog.Logger
}

// Option configures the resolver.
type Option func(*Resolver)

func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a resolver over validated tables. Panics when the
// tables were not validated (no default entry) or geo is nil, failing fast
// at startup.
func NewResolver(tables []Table, geo Geolocator, cacheTTL time.Duration, opts ...Option) *Resolver {
	if geo == nil {
		panic("pricing: Geolocator is required")
	}
	if _, ok := findTable(tables, DefaultKey); !ok {
		panic("pricing: tables must include a default entry")
	}
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}

	r := &Resolver{
		tables: tables,
		geo:    geo,
		cache:  ttlcache.New[string, Table](cacheTTL),
		ttl:    cacheTTL,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheTTL reports how long a resolved table stays pinned to an IP. HTTP
// handlers reuse it as the client-side cache lifetime for pricing responses,
// keeping both caches on the same clock.
func (r *Resolver) CacheTTL() time.Duration { return r.ttl }

// Resolve returns the pricing table for the given client IP. It never
// fails: every error path degrades to the default table.
func (r *Resolver) Resolve(ctx context.Context, ip string) Table {
	if cached, ok := r.cache.Get(ip); ok {
		return cached
	}

	loc, err := r.geo.Locate(ctx, ip)
	if err != nil {
		// Transient lookup failures are served the default table but not
		// cached: the next request gets a fresh chance at regional pricing.
		r.log.WarnContext(ctx, "geolocation lookup failed", "ip", ip, "error", err)
		table, _ := findTable(r.tables, DefaultKey)
		return table
	}

	table := r.tableFor(loc)
	r.cache.Set(ip, table)
	return table
}

func (r *Resolver) tableFor(loc Location) Table {
	defaultTable, _ := findTable(r.tables, DefaultKey)

	if loc.Proxy || loc.Hosting {
		return defaultTable
	}

	if t, ok := findTable(r.tables, "country:"+loc.CountryISO3); ok {
		return t
	}
	if t, ok := findTable(r.tables, "continent:"+loc.Continent); ok {
		return t
	}
	// First configured table in file order wins the currency match.
	for _, t := range r.tables {
		if t.Key != DefaultKey && t.Currency == loc.Currency {
			return t
		}
	}
	return defaultTable
}

func findTable(tables []Table, key string) (Table, bool) {
	for _, t := range tables {
		if t.Key == key {
			return t, true
		}
	}
	return Table{}, false
}
