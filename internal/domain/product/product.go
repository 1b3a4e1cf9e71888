package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a read-only projection of a backend catalog item.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int64
	CategoryID  int64
	SellerID    int64
	// Image is either empty or a data URI as served by the backend.
	Image string
}

// Category groups products in the catalog.
type Category struct {
	ID   int64
	Name string
}

// Image is an uploaded product picture.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Draft holds the fields submitted when creating a product. Numeric fields
// are kept as entered so the backend performs the validation.
type Draft struct {
	Name        string
	Description string
	CategoryID  string
	Price       string
	Stock       string
	SellerID    int64
	Image       *Image
}

// Repository defines catalog operations served by the backend.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, d Draft) (*Product, error)
}

// CategoryRepository defines category operations served by the backend.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
}

// Find returns the product with the given ID from products.
func Find(products []Product, id int64) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
