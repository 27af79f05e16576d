// Package billing is the HTTP surface of the billing backend: payment
// provider webhooks, regional pricing, checkout redirects, team seat
// management, cancellation, and the signed account-data endpoint.
package billing
