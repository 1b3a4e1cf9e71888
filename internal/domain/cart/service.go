package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Service applies cart operations against a Repository. Products are
// resolved from the caller's loaded catalog so prices match what was shown.
type Service struct {
	repo Repository
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the cart of sessionID.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// Add puts the product with productID, looked up in catalog, into the cart.
func (s *Service) Add(ctx context.Context, sessionID string, catalog []product.Product, productID int64) (*Cart, error) {
	p, ok := product.Find(catalog, productID)
	if !ok {
		return nil, ErrUnknownProduct
	}

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.Add(p)
	if err := s.repo.Save(ctx, sessionID, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Remove deletes the product's line. Removing an absent line is not an error.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int64) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(productID) {
		return c, nil
	}
	if err := s.repo.Save(ctx, sessionID, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}
