package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/account"
	"github.com/xenking/kart-storefront/internal/session"
)

const (
	MsgSignedUp        = "Registro exitoso. Ahora puedes iniciar sesión."
	MsgMissingFields   = "Todos los campos son obligatorios."
	MsgPasswordChanged = "Contraseña actualizada con éxito. Ahora puedes iniciar sesión."
	MsgPasswordFailed  = "Error al restablecer la contraseña. Verifica los datos e inténtalo de nuevo."
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges username and password for a token pair stored in the
// visitor's session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	greeting, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: greeting})
}

// Logout revokes the refresh token and forgets the session's view state.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := session.Require(r.Context())
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	defer h.workspaces.Drop(sess.ID())

	if err := h.accounts.Logout(r.Context()); err != nil {
		// Credentials are already gone from memory; the store will catch up.
		zctx.From(r.Context()).Warn("Logout", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

type signupRequest struct {
	Username  string `json:"username"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Cedula    string `json:"cedula"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

// Signup registers a buyer account from the single-page form.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}

	err := h.accounts.Signup(r.Context(), account.Registration{
		Username:  req.Username,
		Password1: req.Password1,
		Password2: req.Password2,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Cedula:    req.Cedula,
		Address:   req.Address,
		Phone:     req.Phone,
	})
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: MsgSignedUp})
}

type passwordRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword forwards a password change to the backend.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, MsgPasswordFailed)
		return
	}

	err := h.accounts.ChangePassword(r.Context(), account.PasswordChange{
		Username:        req.Username,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		code, msg := statusFor(err, MsgPasswordFailed)
		if code != http.StatusBadRequest || msg != MsgMissingFields {
			msg = MsgPasswordFailed
		}
		zctx.From(r.Context()).Debug("Change password", zap.Error(err), zap.Int("status", code))
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: MsgPasswordChanged})
}

type profileResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"isStaff"`
}

// Profile returns the logged-in user. A visitor whose tokens were rejected
// even after a refresh gets 401.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.accounts.Profile(r.Context())
	if err != nil {
		fail(w, r, err, MsgOperationFailed)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Username: p.Username,
		Email:    p.Email,
		IsStaff:  p.IsStaff,
	})
}
