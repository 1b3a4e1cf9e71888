package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/catalog"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

type productResponse struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int64           `json:"stock"`
	CategoryID   int64           `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
	SellerID     int64           `json:"sellerId,omitempty"`
	Image        string          `json:"image,omitempty"`
}

type catalogResponse struct {
	State     string            `json:"state"`
	Message   string            `json:"message,omitempty"`
	Items     []productResponse `json:"items"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	PageCount int               `json:"pageCount"`
	Pages     []int             `json:"pages"`
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// parseQuery reads the browser controls from the query string. Empty values
// leave the matching control unset. The search text is matched as typed.
func parseQuery(v url.Values) (catalog.Query, error) {
	q := catalog.Query{Search: v.Get("search"), Page: 1}

	if s := v.Get("category"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return q, badRequest("invalid category")
		}
		q.CategoryID = &id
	}
	for _, bound := range []struct {
		key string
		dst **decimal.Decimal
	}{
		{"min_price", &q.MinPrice},
		{"max_price", &q.MaxPrice},
	} {
		s := v.Get(bound.key)
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return q, badRequest("invalid " + bound.key)
		}
		*bound.dst = &d
	}

	order, err := catalog.ParseSortOrder(v.Get("sort"))
	if err != nil {
		return q, badRequest("invalid sort")
	}
	q.Order = order

	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, badRequest("invalid page")
		}
		q.Page = n
	}
	return q, nil
}

func toProductResponse(p product.Product, cats *catalog.Categories) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		SellerID:    p.SellerID,
		Image:       p.Image,
	}
	if cats != nil {
		resp.CategoryName, _ = cats.Name(p.CategoryID)
	}
	return resp
}

func catalogPage(snap catalog.Snapshot, q catalog.Query, cats *catalog.Categories) catalogResponse {
	resp := catalogResponse{
		State:   snap.State.String(),
		Message: snap.Message,
		Items:   []productResponse{},
		Page:    max(q.Page, 1),
		Pages:   []int{},
	}
	if snap.State != catalog.Loaded {
		return resp
	}

	page := catalog.Apply(snap.Products, q)
	resp.Items = make([]productResponse, len(page.Items))
	for i, p := range page.Items {
		resp.Items[i] = toProductResponse(p, cats)
	}
	resp.Total = page.Total
	resp.Page = page.Number
	resp.PageCount = page.PageCount
	resp.Pages = page.Pages()
	return resp
}

// Catalog returns one page of the filtered, sorted catalog, loading it on
// the session's first visit.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	snap := ws.Catalog.Ensure(r.Context())
	writeJSON(w, http.StatusOK, catalogPage(snap, q, ws.Categories))
}

// ReloadCatalog runs the load again and returns the first page.
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	snap := ws.Catalog.Load(r.Context())
	writeJSON(w, http.StatusOK, catalogPage(snap, catalog.Query{Page: 1}, ws.Categories))
}

// ListCategories returns the session's category cache.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	ws.Catalog.Ensure(r.Context())

	cats := ws.Categories.List()
	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// CreateCategory adds a category on the backend and to the cache.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	c, err := ws.Categories.Create(r.Context(), req.Name)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{ID: c.ID, Name: c.Name})
}
