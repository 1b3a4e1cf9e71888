//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/session"
)

// startPostgres runs postgres:16-alpine, applies the embedded schema and
// returns a pool that is closed when the test ends.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_USER": "kart", "POSTGRES_PASSWORD": "kart", "POSTGRES_DB": "storefront"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://kart:kart@%s:%s/storefront?sslmode=disable", host, port.Port())

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// The schema is idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestIntegration_Storage(t *testing.T) {
	pool := startPostgres(t)

	t.Run("sessions", func(t *testing.T) {
		ctx := context.Background()
		repo := NewSessionRepository(pool)

		got, err := repo.Load(ctx, "missing")
		require.NoError(t, err)
		assert.True(t, got.IsZero())

		require.NoError(t, repo.Save(ctx, "sid", session.Credentials{AccessToken: "a1", RefreshToken: "r1"}))
		require.NoError(t, repo.Save(ctx, "sid", session.Credentials{AccessToken: "a2", RefreshToken: "r1"}))

		got, err = repo.Load(ctx, "sid")
		require.NoError(t, err)
		assert.Equal(t, session.Credentials{AccessToken: "a2", RefreshToken: "r1"}, got)

		require.NoError(t, repo.Delete(ctx, "sid"))
		require.NoError(t, repo.Delete(ctx, "sid"))
		got, err = repo.Load(ctx, "sid")
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("carts", func(t *testing.T) {
		ctx := context.Background()
		repo := NewCartRepository(pool)

		empty, err := repo.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Empty(t, empty.Items)

		var c cart.Cart
		c.Add(product.Product{ID: 2, Name: "Laptop", Price: decimal.RequireFromString("1000.00")})
		c.Add(product.Product{ID: 1, Name: "Celular", Price: decimal.RequireFromString("499.99")})
		c.Add(product.Product{ID: 2, Name: "Laptop", Price: decimal.RequireFromString("1000.00")})
		require.NoError(t, repo.Save(ctx, "sid", &c))

		got, err := repo.Get(ctx, "sid")
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		assert.Equal(t, int64(2), got.Items[0].ProductID, "insertion order is kept")
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.True(t, got.Total().Equal(decimal.RequireFromString("2499.99")))

		c.Remove(2)
		require.NoError(t, repo.Save(ctx, "sid", &c))
		got, err = repo.Get(ctx, "sid")
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Celular", got.Items[0].Name)

		other, err := repo.Get(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, other.Items)
	})
}
