// Package cart holds the visitor's shopping cart.
package cart

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// ErrUnknownProduct is returned when adding a product that is not in the
// loaded catalog.
var ErrUnknownProduct = errors.New("product not found in catalog")

// Item is one cart line.
type Item struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Subtotal is Price × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ordered list of lines, one per product, in first-added order.
type Cart struct {
	Items []Item
}

// Add increments the quantity of p's line, or appends a new line with
// quantity 1.
func (c *Cart) Add(p product.Product) {
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1})
}

// Remove deletes the line for productID. It reports whether a line existed.
func (c *Cart) Remove(productID int64) bool {
	n := len(c.Items)
	c.Items = slices.DeleteFunc(c.Items, func(i Item) bool {
		return i.ProductID == productID
	})
	return len(c.Items) != n
}

// Total is the sum of all subtotals rounded to two decimal places.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, i := range c.Items {
		total = total.Add(i.Subtotal())
	}
	return total.Round(2)
}

// Count is the total number of units in the cart.
func (c *Cart) Count() int {
	var n int
	for _, i := range c.Items {
		n += i.Quantity
	}
	return n
}

// Repository persists carts keyed by session id. Get returns an empty cart
// for an unknown session.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
}
