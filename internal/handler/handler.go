// Package handler implements the storefront's JSON API on top of the
// session-scoped domain services.
package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/backend"
	"github.com/xenking/kart-storefront/internal/catalog"
	"github.com/xenking/kart-storefront/internal/domain/account"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/session"
	"github.com/xenking/kart-storefront/internal/wizard"
	"github.com/xenking/kart-storefront/internal/workspace"
	"github.com/xenking/kart-storefront/pkg/httpmiddleware"
)

const (
	// MsgOperationFailed is shown when the backend gives no usable message.
	MsgOperationFailed = "Error en la operación."
	// MsgSessionExpired is shown when the backend rejects the session's
	// tokens even after a refresh.
	MsgSessionExpired = "Tu sesión ha expirado. Inicia sesión de nuevo."
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxImageBytes caps product image uploads. Defaults to 5 MiB.
	MaxImageBytes int64
}

// Handler serves the /api routes.
type Handler struct {
	accounts   *account.Service
	carts      *cart.Service
	workspaces *workspace.Registry

	maxImageBytes int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	accounts *account.Service,
	carts *cart.Service,
	workspaces *workspace.Registry,
) *Handler {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 5 << 20
	}
	return &Handler{
		accounts:      accounts,
		carts:         carts,
		workspaces:    workspaces,
		maxImageBytes: cfg.MaxImageBytes,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, httpmiddleware.Route(pattern, fn))
	}

	handle("POST /api/session", h.Login)
	handle("DELETE /api/session", h.Logout)
	handle("POST /api/signup", h.Signup)
	handle("POST /api/password", h.ChangePassword)
	handle("GET /api/profile", h.Profile)

	handle("GET /api/catalog", h.Catalog)
	handle("POST /api/catalog/reload", h.ReloadCatalog)
	handle("GET /api/categories", h.ListCategories)
	handle("POST /api/categories", h.CreateCategory)

	handle("GET /api/cart", h.GetCart)
	handle("POST /api/cart/items", h.AddCartItem)
	handle("DELETE /api/cart/items/{id}", h.RemoveCartItem)

	handle("GET /api/wizards/product", h.ProductWizard)
	handle("PUT /api/wizards/product", h.SetProductFields)
	handle("PUT /api/wizards/product/image", h.SetProductImage)
	handle("POST /api/wizards/product/next", h.NextProductStep)
	handle("POST /api/wizards/product/prev", h.PrevProductStep)
	handle("POST /api/wizards/product/submit", h.SubmitProduct)

	handle("GET /api/wizards/registration", h.RegistrationWizard)
	handle("PUT /api/wizards/registration", h.SetRegistrationFields)
	handle("POST /api/wizards/registration/next", h.NextRegistrationStep)
	handle("POST /api/wizards/registration/prev", h.PrevRegistrationStep)
	handle("POST /api/wizards/registration/submit", h.SubmitRegistration)
}

// workspace returns the view state of the request's session.
func (h *Handler) workspace(r *http.Request) (*workspace.Workspace, *session.Session, error) {
	sess, err := session.Require(r.Context())
	if err != nil {
		return nil, nil, err
	}
	return h.workspaces.Get(sess.ID()), sess, nil
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Code: code, Message: message})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &badRequestError{msg: "invalid request body", err: err}
	}
	return nil
}

// badRequestError marks input the handler itself rejected.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

// statusFor maps err to an HTTP status and the message shown to the user.
// fallback is used whenever the error carries nothing worth showing.
func statusFor(err error, fallback string) (int, string) {
	var bre *badRequestError
	switch {
	case errors.As(err, &bre):
		return http.StatusBadRequest, bre.msg
	case errors.Is(err, account.ErrMissingFields):
		return http.StatusBadRequest, MsgMissingFields
	case errors.Is(err, catalog.ErrEmptyCategoryName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, cart.ErrUnknownProduct):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, wizard.ErrNotFinalStep):
		return http.StatusConflict, err.Error()
	case errors.Is(err, session.ErrNoSession):
		return http.StatusInternalServerError, fallback
	}

	// A 401 here already survived the refresh retry.
	if backend.IsUnauthorized(err) {
		return http.StatusUnauthorized, backend.UserMessage(err, MsgSessionExpired)
	}
	switch code := backend.StatusCode(err); {
	case code >= 400 && code < 500:
		return code, backend.UserMessage(err, fallback)
	case code != 0:
		return http.StatusBadGateway, fallback
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return http.StatusBadGateway, fallback
	}
	return http.StatusInternalServerError, fallback
}

// fail logs err and writes the mapped error response.
func fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code, msg := statusFor(err, fallback)
	lg := zctx.From(r.Context())
	if code >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err), zap.Int("status", code))
	} else {
		lg.Debug("Request rejected", zap.Error(err), zap.Int("status", code))
	}
	writeError(w, code, msg)
}
