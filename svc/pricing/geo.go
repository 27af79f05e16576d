package pricing

import "context"

// Location is the geolocation answer for one IP.
type Location struct {
	CountryISO3 string // e.g. "USA"
	Continent   string // e.g. "EU"
	Currency    string // e.g. "GBP"

	// Proxy and Hosting flag anonymizing or datacenter traffic. Flagged
	// IPs never receive region-discounted pricing.
	Proxy   bool
	Hosting bool
}

// Geolocator resolves an IP to location data. LookupClient is the
// production implementation; tests substitute their own.
type Geolocator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}
