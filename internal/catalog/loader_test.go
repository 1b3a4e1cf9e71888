package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/backend"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockRepo struct {
	mu       sync.Mutex
	products []product.Product
	err      error
	calls    int

	categories []product.Category
	catErr     error
	created    []string
}

func (m *mockRepo) List(context.Context) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.products, m.err
}

func (m *mockRepo) Create(context.Context, product.Draft) (*product.Product, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRepo) ListCategories(context.Context) ([]product.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categories, m.catErr
}

func (m *mockRepo) CreateCategory(_ context.Context, name string) (*product.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.catErr != nil {
		return nil, m.catErr
	}
	m.created = append(m.created, name)
	return &product.Category{ID: int64(100 + len(m.created)), Name: name}, nil
}

func TestLoader_InitialStateIsLoading(t *testing.T) {
	l := NewLoader(&mockRepo{}, nil)
	snap := l.Snapshot()
	assert.Equal(t, Loading, snap.State)
	assert.Empty(t, snap.Products)
	assert.Empty(t, snap.Message)
}

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name        string
		repo        *mockRepo
		wantState   State
		wantCount   int
		wantMessage string
		wantErr     error
	}{
		{
			name:      "loaded",
			repo:      &mockRepo{products: sample()},
			wantState: Loaded,
			wantCount: 5,
		},
		{
			name:        "empty catalog is a failure",
			repo:        &mockRepo{products: []product.Product{}},
			wantState:   Failed,
			wantMessage: MsgNoProducts,
			wantErr:     ErrNoProducts,
		},
		{
			name:        "backend 4xx message is shown",
			repo:        &mockRepo{err: &backend.StatusError{StatusCode: 403, Message: "No tiene permiso"}},
			wantState:   Failed,
			wantMessage: "No tiene permiso",
		},
		{
			name:        "transport failure uses generic message",
			repo:        &mockRepo{err: errors.New("connection refused")},
			wantState:   Failed,
			wantMessage: MsgLoadFailed,
		},
		{
			name:        "server error uses generic message",
			repo:        &mockRepo{err: &backend.StatusError{StatusCode: 500, Message: "boom"}},
			wantState:   Failed,
			wantMessage: MsgLoadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(tt.repo, nil)
			snap := l.Load(context.Background())

			assert.Equal(t, tt.wantState, snap.State)
			assert.Len(t, snap.Products, tt.wantCount)
			assert.Equal(t, tt.wantMessage, snap.Message)
			if tt.wantErr != nil {
				assert.ErrorIs(t, snap.Err, tt.wantErr)
			}
			if snap.State == Failed {
				assert.Empty(t, snap.Products, "products are never shown with an error")
			}
		})
	}
}

func TestLoader_ReloadStartsOver(t *testing.T) {
	repo := &mockRepo{err: errors.New("down")}
	l := NewLoader(repo, nil)

	require.Equal(t, Failed, l.Load(context.Background()).State)

	repo.mu.Lock()
	repo.err = nil
	repo.products = sample()
	repo.mu.Unlock()

	snap := l.Load(context.Background())
	assert.Equal(t, Loaded, snap.State)
	assert.Empty(t, snap.Message)
	assert.Nil(t, snap.Err)
	assert.Equal(t, 2, repo.calls)
}

func TestLoader_EnsureLoadsOnce(t *testing.T) {
	repo := &mockRepo{products: sample()}
	l := NewLoader(repo, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, Loaded, l.Ensure(context.Background()).State)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, repo.calls)
}

func TestLoader_FetchesCategoriesAlongside(t *testing.T) {
	repo := &mockRepo{
		products:   sample(),
		categories: []product.Category{{ID: 1, Name: "Tecnología"}},
	}
	cats := NewCategories(repo)
	l := NewLoader(repo, cats)

	require.Equal(t, Loaded, l.Load(context.Background()).State)
	assert.Equal(t, []product.Category{{ID: 1, Name: "Tecnología"}}, cats.List())
}

func TestLoader_CategoryFailureDoesNotFailLoad(t *testing.T) {
	repo := &mockRepo{products: sample(), catErr: errors.New("categories down")}
	cats := NewCategories(repo)
	l := NewLoader(repo, cats)

	assert.Equal(t, Loaded, l.Load(context.Background()).State)
	assert.Empty(t, cats.List())
}

func TestCategories_Create(t *testing.T) {
	repo := &mockRepo{categories: []product.Category{{ID: 1, Name: "Tecnología"}}}
	cats := NewCategories(repo)
	require.NoError(t, cats.Fetch(context.Background()))

	cat, err := cats.Create(context.Background(), "  Hogar ")
	require.NoError(t, err)
	assert.Equal(t, "Hogar", cat.Name)
	assert.Equal(t, []string{"Hogar"}, repo.created)

	name, ok := cats.Name(cat.ID)
	assert.True(t, ok)
	assert.Equal(t, "Hogar", name)
	assert.Len(t, cats.List(), 2)

	_, err = cats.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCategoryName)
}

func TestCategories_FetchFailureEmptiesCache(t *testing.T) {
	repo := &mockRepo{categories: []product.Category{{ID: 1, Name: "Tecnología"}}}
	cats := NewCategories(repo)
	require.NoError(t, cats.Fetch(context.Background()))

	repo.catErr = errors.New("down")
	assert.Error(t, cats.Fetch(context.Background()))
	assert.Empty(t, cats.List())
}
