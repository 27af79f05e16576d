// Package paddle integrates the legacy payment provider: RSA-SHA1 webhook
// signature verification over PHP-serialized field maps, url-encoded
// webhook parsing, the classic vendor API (cancellation, seat quantity
// updates), and hosted checkout URLs.
package paddle
