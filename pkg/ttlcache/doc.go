// Package ttlcache implements a generic process-local cache with a fixed
// time-to-live per entry. It backs the per-IP pricing cache, the exchange
// rate cache, and the bearer-token lookup cache.
package ttlcache
