// Package catalog computes the visible part of the product catalog and tracks
// how the catalog was loaded.
package catalog

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// PageSize is the number of products shown per catalog page.
const PageSize = 6

// SortOrder orders products by price.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

// ParseSortOrder accepts "asc"/"lowToHigh" and "desc"/"highToLow". An empty
// value means Ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch s {
	case "", "asc", "lowToHigh":
		return Ascending, nil
	case "desc", "highToLow":
		return Descending, nil
	default:
		return Ascending, errors.Errorf("unknown sort order %q", s)
	}
}

// Query holds the browser's filter, sort and page controls.
type Query struct {
	Search     string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Order      SortOrder
	// Page is 1-based. Values below 1 are treated as 1.
	Page int
}

// Page is one page of the filtered, sorted catalog.
type Page struct {
	Items []product.Product
	// Total is the number of products that passed the filter.
	Total     int
	PageCount int
	Number    int
}

// Pages lists the selectable page numbers 1..PageCount.
func (p Page) Pages() []int {
	pages := make([]int, p.PageCount)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// Apply filters, sorts and paginates products. It never modifies products.
func Apply(products []product.Product, q Query) Page {
	filtered := Filter(products, q)
	Sort(filtered, q.Order)

	number := max(q.Page, 1)
	return Page{
		Items:     Paginate(filtered, number),
		Total:     len(filtered),
		PageCount: PageCount(len(filtered)),
		Number:    number,
	}
}

// Filter returns the products matching every control set in q, in input
// order. The result never aliases products.
func Filter(products []product.Product, q Query) []product.Product {
	search := strings.ToLower(q.Search)
	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if q.CategoryID != nil && p.CategoryID != *q.CategoryID {
			continue
		}
		if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sort orders products by price in place. Products with equal prices keep
// their relative order.
func Sort(products []product.Product, order SortOrder) {
	slices.SortStableFunc(products, func(a, b product.Product) int {
		if order == Descending {
			return b.Price.Cmp(a.Price)
		}
		return a.Price.Cmp(b.Price)
	})
}

// Paginate returns page n (1-based) of products. Pages past the end are
// empty.
func Paginate(products []product.Product, n int) []product.Product {
	if n < 1 {
		n = 1
	}
	// Compare page numbers before multiplying so huge pages cannot overflow.
	if n > PageCount(len(products)) {
		return []product.Product{}
	}
	start := (n - 1) * PageSize
	end := min(start+PageSize, len(products))
	return products[start:end]
}

// PageCount is ceil(n / PageSize).
func PageCount(n int) int {
	return (n + PageSize - 1) / PageSize
}
