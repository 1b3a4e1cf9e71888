package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// ErrEmptyCategoryName is returned by Categories.Create for a blank name.
var ErrEmptyCategoryName = errors.New("category name is required")

// Categories caches the backend's category list for one session.
type Categories struct {
	repo product.CategoryRepository

	mu    sync.RWMutex
	items []product.Category
}

// NewCategories creates an empty cache over repo.
func NewCategories(repo product.CategoryRepository) *Categories {
	return &Categories{repo: repo}
}

// Fetch replaces the cache with the backend's list. On error the cache is
// emptied.
func (c *Categories) Fetch(ctx context.Context) error {
	items, err := c.repo.ListCategories(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.items = nil
		return errors.Wrap(err, "list categories")
	}
	c.items = items
	return nil
}

// List returns a copy of the cached categories.
func (c *Categories) List() []product.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Name returns the name of the category with the given id.
func (c *Categories) Name(id int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.items {
		if cat.ID == id {
			return cat.Name, true
		}
	}
	return "", false
}

// Create adds a category on the backend and appends it to the cache.
func (c *Categories) Create(ctx context.Context, name string) (*product.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCategoryName
	}
	cat, err := c.repo.CreateCategory(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items = append(c.items, *cat)
	c.mu.Unlock()
	return cat, nil
}
