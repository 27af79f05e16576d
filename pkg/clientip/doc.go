// Package clientip extracts the originating client IP from HTTP requests
// served behind a trusted reverse proxy.
package clientip
