// Package pricing resolves region-aware price tables for checkout and the
// pricing page. Static tables are configured in YAML and validated at
// startup; resolution falls back country -> continent -> currency match ->
// default, with proxy/hosting traffic pinned to the default table.
package pricing
