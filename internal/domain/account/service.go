package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/session"
)

// ErrMissingFields is returned when a required form field is blank.
var ErrMissingFields = errors.New("all fields are required")

// Service implements the login, signup, logout, password and profile flows
// on top of the session carried in the request context.
type Service struct {
	gw Gateway
}

// NewService creates an account Service over the given backend gateway.
func NewService(gw Gateway) *Service {
	return &Service{gw: gw}
}

// Login authenticates against the backend and stores the issued pair in the
// request's session. It returns the greeting shown to the user.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	sess, err := session.Require(ctx)
	if err != nil {
		return "", err
	}

	creds, err := s.gw.Login(ctx, username, password)
	if err != nil {
		return "", errors.Wrap(err, "login")
	}
	if err := sess.SetCredentials(ctx, creds); err != nil {
		return "", err
	}

	return fmt.Sprintf("Bienvenido, %s", username), nil
}

// Signup registers a buyer account. Role and groups default to the buyer
// settings when left empty.
func (s *Service) Signup(ctx context.Context, r Registration) error {
	if r.Role == "" {
		r.Role = DefaultRole
	}
	if r.Groups == nil {
		r.Groups = DefaultGroups
	}
	if err := s.gw.Signup(ctx, r); err != nil {
		return errors.Wrap(err, "signup")
	}
	return nil
}

// Logout revokes the refresh token when the session is logged in. The
// session's credentials are cleared whatever the backend answers.
func (s *Service) Logout(ctx context.Context) error {
	sess, err := session.Require(ctx)
	if err != nil {
		return err
	}

	creds := sess.Credentials()
	if creds.AccessToken != "" {
		if err := s.gw.Logout(ctx, creds.RefreshToken); err != nil {
			zctx.From(ctx).Warn("Backend logout failed", zap.Error(err))
		}
	}
	return sess.Clear(ctx)
}

// ChangePassword validates that every field is present and forwards the
// change to the backend.
func (s *Service) ChangePassword(ctx context.Context, c PasswordChange) error {
	if strings.TrimSpace(c.Username) == "" || c.CurrentPassword == "" || c.NewPassword == "" {
		return ErrMissingFields
	}
	if err := s.gw.ChangePassword(ctx, c); err != nil {
		return errors.Wrap(err, "change password")
	}
	return nil
}

// Profile returns the logged-in user's identity.
func (s *Service) Profile(ctx context.Context) (*Profile, error) {
	p, err := s.gw.Profile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "profile")
	}
	return p, nil
}
