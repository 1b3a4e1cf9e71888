package wizard

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// ProductSteps is the length of the product entry wizard: details, pricing
// and stock, confirmation.
const ProductSteps = 3

const (
	MsgProductCreated = "Producto ingresado con éxito"
	MsgProductFailed  = "Error al ingresar el producto"
)

const defaultQuantity = "1"

// ProductFields is what the user typed into the product entry wizard. Values
// are kept as entered and sent to the backend untouched.
type ProductFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	CategoryID  string `json:"categoryId"`
}

func emptyProductFields() ProductFields {
	return ProductFields{Quantity: defaultQuantity}
}

// ProductState is a snapshot of a ProductEntry.
type ProductState struct {
	Step   int
	Total  int
	Fields ProductFields
	// Image is the attached file name, empty when none.
	Image string
}

// ProductEntry is the three-step wizard that creates a product.
type ProductEntry struct {
	repo     product.Repository
	sellerID int64

	mu     sync.Mutex
	steps  Steps
	fields ProductFields
	image  *product.Image
}

// NewProductEntry creates a wizard that submits through repo. sellerID is
// sent as the product's seller; 0 leaves the choice to the backend.
func NewProductEntry(repo product.Repository, sellerID int64) *ProductEntry {
	return &ProductEntry{
		repo:     repo,
		sellerID: sellerID,
		steps:    NewSteps(ProductSteps),
		fields:   emptyProductFields(),
	}
}

// State returns the current step and fields.
func (w *ProductEntry) State() ProductState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state()
}

func (w *ProductEntry) state() ProductState {
	s := ProductState{Step: w.steps.Current(), Total: w.steps.Total(), Fields: w.fields}
	if w.image != nil {
		s.Image = w.image.Filename
	}
	return s
}

// SetFields replaces the text fields. An empty quantity falls back to 1.
func (w *ProductEntry) SetFields(f ProductFields) ProductState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if strings.TrimSpace(f.Quantity) == "" {
		f.Quantity = defaultQuantity
	}
	w.fields = f
	return w.state()
}

// SetImage attaches img, or detaches the current image when img is nil.
func (w *ProductEntry) SetImage(img *product.Image) ProductState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.image = img
	return w.state()
}

func (w *ProductEntry) Next() ProductState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps.Next()
	return w.state()
}

func (w *ProductEntry) Prev() ProductState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps.Prev()
	return w.state()
}

// Submit creates the product. It is refused with ErrNotFinalStep before the
// last step. On success the wizard is cleared; on failure the fields stay and
// the backend error is returned alongside the outcome.
func (w *ProductEntry) Submit(ctx context.Context) (Outcome, *product.Product, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.steps.IsFinal() {
		return Outcome{}, nil, ErrNotFinalStep
	}

	created, err := w.repo.Create(ctx, product.Draft{
		Name:        w.fields.Name,
		Description: w.fields.Description,
		CategoryID:  w.fields.CategoryID,
		Price:       w.fields.Price,
		Stock:       w.fields.Quantity,
		SellerID:    w.sellerID,
		Image:       w.image,
	})
	if err != nil {
		return Outcome{Message: MsgProductFailed}, nil, errors.Wrap(err, "create product")
	}

	w.fields = emptyProductFields()
	w.image = nil
	w.steps.Reset()
	return Outcome{OK: true, Message: MsgProductCreated}, created, nil
}
