package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-storefront/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by the cart_items table.
// Line order is kept in the position column.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the session's cart; an unknown session has an empty cart.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, name, price, quantity
		FROM cart_items
		WHERE session_id = $1
		ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying cart %q: %w", sessionID, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var i cart.Item
		err := row.Scan(&i.ProductID, &i.Name, &i.Price, &i.Quantity)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart %q: %w", sessionID, err)
	}
	return &cart.Cart{Items: items}, nil
}

// Save replaces the session's cart lines in a single transaction.
func (r *CartRepository) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM cart_items WHERE session_id = $1`, sessionID)
		for pos, i := range c.Items {
			batch.Queue(`
				INSERT INTO cart_items (session_id, product_id, name, price, quantity, position)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				sessionID, i.ProductID, i.Name, i.Price, i.Quantity, pos,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", sessionID, err)
	}
	return nil
}
