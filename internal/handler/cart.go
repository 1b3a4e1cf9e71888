package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
)

type cartItemResponse struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Count int                `json:"count"`
	Total decimal.Decimal    `json:"total"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	resp := cartResponse{
		Items: make([]cartItemResponse, len(c.Items)),
		Count: c.Count(),
		Total: c.Total(),
	}
	for i, it := range c.Items {
		resp.Items[i] = cartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		}
	}
	return resp
}

// GetCart returns the visitor's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	_, sess, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	c, err := h.carts.Get(r.Context(), sess.ID())
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type addCartItemRequest struct {
	ProductID int64 `json:"productId"`
}

// AddCartItem adds one unit of a catalog product.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	ws, sess, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	snap := ws.Catalog.Ensure(r.Context())
	c, err := h.carts.Add(r.Context(), sess.ID(), snap.Products, req.ProductID)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveCartItem deletes a product's line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, r, badRequest("invalid product id"), MsgOperationFailed)
		return
	}
	_, sess, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	c, err := h.carts.Remove(r.Context(), sess.ID(), id)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}
