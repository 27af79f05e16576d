package subscription

import "context"

// User is a record in the identity-provider user store.
type User struct {
	ID       string
	Email    string // lower-cased for matching
	Metadata Metadata
}

// Store is the user-attribute store this service reads and writes. The
// production implementation fronts the identity provider with retry and a
// best-effort relational mirror (svc/userstore); tests use an in-memory one.
type Store interface {
	// GetUserByID returns (nil, nil) when no user matches.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUsersByEmail returns all users matching the lower-cased email.
	// Zero or one match is expected; more is a data problem the caller
	// decides how to handle.
	GetUsersByEmail(ctx context.Context, email string) ([]User, error)

	CreateUser(ctx context.Context, email string, meta Metadata) (*User, error)

	// UpdateUserMetadata merges the patch into the user's metadata: nil
	// values delete fields, absent keys stay untouched.
	UpdateUserMetadata(ctx context.Context, id string, patch Patch) (*User, error)
}
