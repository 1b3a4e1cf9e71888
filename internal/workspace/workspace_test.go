package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/catalog"
	"github.com/xenking/kart-storefront/internal/domain/account"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// --- Mock implementations ---

type stubRepo struct{}

func (stubRepo) List(context.Context) ([]product.Product, error) {
	return []product.Product{{ID: 1, Name: "Celular"}}, nil
}

func (stubRepo) Create(context.Context, product.Draft) (*product.Product, error) {
	return &product.Product{ID: 2}, nil
}

func (stubRepo) ListCategories(context.Context) ([]product.Category, error) {
	return []product.Category{{ID: 1, Name: "Tecnología"}}, nil
}

func (stubRepo) CreateCategory(_ context.Context, name string) (*product.Category, error) {
	return &product.Category{ID: 2, Name: name}, nil
}

type stubSigner struct{}

func (stubSigner) Signup(context.Context, account.Registration) error { return nil }

func newTestRegistry(ttl time.Duration) *Registry {
	return NewRegistry(Deps{Products: stubRepo{}, Categories: stubRepo{}, Signer: stubSigner{}, SellerID: 8}, ttl)
}

func TestRegistry_GetIsPerSession(t *testing.T) {
	r := newTestRegistry(time.Minute)

	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	assert.NotSame(t, a, r.Get("b"))
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, catalog.Loading, a.Catalog.Snapshot().State, "a new workspace starts loading")
	require.Equal(t, catalog.Loaded, a.Catalog.Load(context.Background()).State)
	assert.Len(t, a.Categories.List(), 1)
	assert.Equal(t, catalog.Loading, r.Get("b").Catalog.Snapshot().State)
}

func TestRegistry_Drop(t *testing.T) {
	r := newTestRegistry(time.Minute)
	a := r.Get("a")
	a.ProductEntry.Next()

	r.Drop("a")
	assert.Zero(t, r.Len())

	fresh := r.Get("a")
	assert.NotSame(t, a, fresh)
	assert.Equal(t, 1, fresh.ProductEntry.State().Step)
}

func TestRegistry_Cleanup(t *testing.T) {
	r := newTestRegistry(10 * time.Minute)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r.now = func() time.Time { return now }

	r.Get("old")
	now = base.Add(8 * time.Minute)
	r.Get("recent")

	assert.Zero(t, r.Cleanup(base.Add(9*time.Minute)))
	assert.Equal(t, 1, r.Cleanup(base.Add(11*time.Minute)))
	assert.Equal(t, 1, r.Len())

	now = base.Add(15 * time.Minute)
	r.Get("recent")
	assert.Zero(t, r.Cleanup(base.Add(20*time.Minute)), "Get refreshes last use")
}

func TestRegistry_MaxWorkspacesEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(Deps{Products: stubRepo{}, Categories: stubRepo{}, Signer: stubSigner{}}, time.Hour, WithMaxWorkspaces(2))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r.now = func() time.Time { return now }

	a := r.Get("a")
	now = base.Add(time.Minute)
	oldB := r.Get("b")
	now = base.Add(2 * time.Minute)
	assert.Same(t, a, r.Get("a"), "touching a makes b the oldest")

	now = base.Add(3 * time.Minute)
	r.Get("c")
	assert.Equal(t, 2, r.Len())
	assert.Same(t, a, r.Get("a"))

	now = base.Add(4 * time.Minute)
	assert.NotSame(t, oldB, r.Get("b"), "b was evicted and starts over")
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ZeroTTLKeepsEverything(t *testing.T) {
	r := newTestRegistry(0)
	r.Get("a")
	assert.Zero(t, r.Cleanup(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, r.Len())

	r.StartCleanup(context.Background())
}

func TestRegistry_StartCleanupStopsWithContext(t *testing.T) {
	r := newTestRegistry(20 * time.Millisecond)
	r.Get("a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartCleanup(ctx)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}
