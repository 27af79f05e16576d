package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

// Mirror is the relational copy of user attributes. Writes are best-effort;
// reads serve cross-checks and offline queries, never the request path.
type Mirror interface {
	UpsertUser(ctx context.Context, user subscription.User) error

	// GetUser returns (nil, nil) when the user has no mirror row yet.
	GetUser(ctx context.Context, id string) (*subscription.User, error)
}

// PGMirror is the postgres-backed mirror.
type PGMirror struct {
	pool *pgxpool.Pool
}

// NewPGMirror creates a mirror over an existing connection pool.
func NewPGMirror(pool *pgxpool.Pool) *PGMirror {
	if pool == nil {
		panic("userstore: pgx pool is required")
	}
	return &PGMirror{pool: pool}
}

func (m *PGMirror) UpsertUser(ctx context.Context, user subscription.User) error {
	meta, err := json.Marshal(user.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for mirror: %w", err)
	}

	_, err = m.pool.Exec(ctx, `
		INSERT INTO user_attributes (user_id, email, app_metadata, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id)
		DO UPDATE SET email = EXCLUDED.email, app_metadata = EXCLUDED.app_metadata, updated_at = now()`,
		user.ID, user.Email, meta)
	if err != nil {
		return errors.Join(ErrMirrorUnavailable, err)
	}
	return nil
}

func (m *PGMirror) GetUser(ctx context.Context, id string) (*subscription.User, error) {
	var (
		user subscription.User
		meta []byte
	)
	err := m.pool.QueryRow(ctx,
		`SELECT user_id, email, app_metadata FROM user_attributes WHERE user_id = $1`, id).
		Scan(&user.ID, &user.Email, &meta)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrMirrorUnavailable, err)
	}

	if err := json.Unmarshal(meta, &user.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal mirrored metadata: %w", err)
	}
	return &user, nil
}
