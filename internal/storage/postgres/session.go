package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-storefront/internal/session"
)

var _ session.Store = (*SessionRepository)(nil)

// SessionRepository implements session.Store backed by the sessions table.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Load returns zero Credentials when the session has no row.
func (r *SessionRepository) Load(ctx context.Context, id string) (session.Credentials, error) {
	var c session.Credentials
	err := r.pool.QueryRow(ctx,
		`SELECT access_token, refresh_token FROM sessions WHERE id = $1`, id,
	).Scan(&c.AccessToken, &c.RefreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Credentials{}, nil
		}
		return session.Credentials{}, fmt.Errorf("loading session %q: %w", id, err)
	}
	return c, nil
}

// Save upserts the credential pair of the session.
func (r *SessionRepository) Save(ctx context.Context, id string, c session.Credentials) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    updated_at = now()`,
		id, c.AccessToken, c.RefreshToken,
	)
	if err != nil {
		return fmt.Errorf("saving session %q: %w", id, err)
	}
	return nil
}

// Delete removes the session row. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session %q: %w", id, err)
	}
	return nil
}
