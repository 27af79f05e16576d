// Package userstore fronts the identity-provider user-attribute store. It
// wraps every call in the shared retry policy (aborting early on
// unrecoverable statuses like 401) and mirrors writes into a best-effort
// postgres table that must never block or fail the primary write.
package userstore
