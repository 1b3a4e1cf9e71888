package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/wizard"
)

type productWizardResponse struct {
	Step    int                  `json:"step"`
	Total   int                  `json:"total"`
	IsFinal bool                 `json:"isFinal"`
	Fields  wizard.ProductFields `json:"fields"`
	Image   string               `json:"image,omitempty"`
}

func toProductWizard(s wizard.ProductState) productWizardResponse {
	return productWizardResponse{
		Step:    s.Step,
		Total:   s.Total,
		IsFinal: s.Step == s.Total,
		Fields:  s.Fields,
		Image:   s.Image,
	}
}

type registrationWizardResponse struct {
	Step    int                       `json:"step"`
	Total   int                       `json:"total"`
	IsFinal bool                      `json:"isFinal"`
	Fields  wizard.RegistrationFields `json:"fields"`
}

func toRegistrationWizard(s wizard.RegistrationState) registrationWizardResponse {
	return registrationWizardResponse{
		Step:    s.Step,
		Total:   s.Total,
		IsFinal: s.Step == s.Total,
		Fields:  s.Fields,
	}
}

type submitResponse struct {
	OK      bool             `json:"ok"`
	Message string           `json:"message"`
	Wizard  any              `json:"wizard"`
	Product *productResponse `json:"product,omitempty"`
}

// ProductWizard returns the product entry wizard.
func (h *Handler) ProductWizard(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toProductWizard(ws.ProductEntry.State()))
}

// SetProductFields replaces the typed fields of the product wizard.
func (h *Handler) SetProductFields(w http.ResponseWriter, r *http.Request) {
	var fields wizard.ProductFields
	if err := decodeJSON(w, r, &fields); err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toProductWizard(ws.ProductEntry.SetFields(fields)))
}

// SetProductImage attaches the multipart "image" file to the product
// wizard. A request without the file detaches the current image.
func (h *Handler) SetProductImage(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	img, err := h.readImage(w, r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toProductWizard(ws.ProductEntry.SetImage(img)))
}

func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) (*product.Image, error) {
	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+64<<10)
	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest("image too large")
		}
		return nil, &badRequestError{msg: "invalid multipart form", err: err}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, &badRequestError{msg: "invalid image", err: err}
	}
	defer func() { _ = f.Close() }()

	if hdr.Size > h.maxImageBytes {
		return nil, badRequest("image too large")
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}

	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &product.Image{
		Filename:    hdr.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (h *Handler) NextProductStep(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toProductWizard(ws.ProductEntry.Next()))
}

func (h *Handler) PrevProductStep(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toProductWizard(ws.ProductEntry.Prev()))
}

// SubmitProduct creates the product from the final step. Backend failures
// keep the wizard filled in and answer with the generic failure message.
func (h *Handler) SubmitProduct(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	out, created, err := ws.ProductEntry.Submit(r.Context())
	if err != nil {
		if errors.Is(err, wizard.ErrNotFinalStep) {
			fail(w, r, err, MsgOperationFailed)
			return
		}
		code, _ := statusFor(err, out.Message)
		zctx.From(r.Context()).Warn("Submit product", zap.Error(err), zap.Int("status", code))
		writeJSON(w, code, submitResponse{
			Message: out.Message,
			Wizard:  toProductWizard(ws.ProductEntry.State()),
		})
		return
	}

	resp := submitResponse{
		OK:      out.OK,
		Message: out.Message,
		Wizard:  toProductWizard(ws.ProductEntry.State()),
	}
	if created != nil {
		p := toProductResponse(*created, ws.Categories)
		resp.Product = &p
	}
	// The catalog no longer matches the backend.
	ws.Catalog.Load(r.Context())
	writeJSON(w, http.StatusCreated, resp)
}

// RegistrationWizard returns the registration wizard with secrets masked.
func (h *Handler) RegistrationWizard(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationWizard(ws.Registration.State()))
}

// SetRegistrationFields replaces the typed fields of the registration wizard.
func (h *Handler) SetRegistrationFields(w http.ResponseWriter, r *http.Request) {
	var fields wizard.RegistrationFields
	if err := decodeJSON(w, r, &fields); err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationWizard(ws.Registration.SetFields(fields)))
}

func (h *Handler) NextRegistrationStep(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationWizard(ws.Registration.Next()))
}

func (h *Handler) PrevRegistrationStep(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, toRegistrationWizard(ws.Registration.Prev()))
}

// SubmitRegistration signs the user up from the final step.
func (h *Handler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	ws, _, err := h.workspace(r)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	out, err := ws.Registration.Submit(r.Context())
	if err != nil {
		if errors.Is(err, wizard.ErrNotFinalStep) {
			fail(w, r, err, MsgOperationFailed)
			return
		}
		code, _ := statusFor(err, out.Message)
		zctx.From(r.Context()).Warn("Submit registration", zap.Error(err), zap.Int("status", code))
		writeJSON(w, code, submitResponse{
			Message: out.Message,
			Wizard:  toRegistrationWizard(ws.Registration.State()),
		})
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		OK:      out.OK,
		Message: out.Message,
		Wizard:  toRegistrationWizard(ws.Registration.State()),
	})
}
