// Package pg bootstraps a pgx/v5 connection pool from environment
// configuration, retrying until the database becomes reachable, and exposes
// the error helpers the rest of the codebase keys on.
package pg
