package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/session"
)

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	got, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	pair := session.Credentials{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, s.Save(ctx, "sid", pair))
	got, err = s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, pair, got)

	require.NoError(t, s.Delete(ctx, "sid"))
	got, err = s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	r := NewCartRepository()

	empty, err := r.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	var c cart.Cart
	c.Add(product.Product{ID: 1, Name: "Celular", Price: decimal.RequireFromString("500")})
	require.NoError(t, r.Save(ctx, "sid", &c))

	// Mutating the caller's cart must not leak into the store.
	c.Add(product.Product{ID: 1, Name: "Celular", Price: decimal.RequireFromString("500")})

	got, err := r.Get(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 1, got.Items[0].Quantity)

	got.Items[0].Quantity = 99
	again, err := r.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)

	require.NoError(t, r.Save(ctx, "sid", &cart.Cart{}))
	cleared, err := r.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
}
