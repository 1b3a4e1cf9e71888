package backend

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/account"
	"github.com/xenking/kart-storefront/internal/session"
)

var _ account.Gateway = (*Client)(nil)

// Login exchanges a username and password for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (session.Credentials, error) {
	resp, err := c.call(ctx, c.raw, http.MethodPost, "/users/login/", encodeLogin(username, password))
	if err != nil {
		return session.Credentials{}, err
	}
	return decodeLogin(resp.body)
}

// Refresh exchanges a refresh token for a new access token. It bypasses the
// credential transport so a failing refresh is never itself refreshed.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.call(ctx, c.raw, http.MethodPost, "/users/refresh-token/", encodeRefresh(refreshToken))
	if err != nil {
		return "", errors.Wrap(err, "refresh token")
	}
	return decodeAccess(resp.body)
}

// Signup registers a new account. Only 201 Created counts as success.
func (c *Client) Signup(ctx context.Context, r account.Registration) error {
	resp, err := c.call(ctx, c.raw, http.MethodPost, "/users/signup/", encodeSignup(r))
	if err != nil {
		return err
	}
	if resp.status != http.StatusCreated {
		return &StatusError{StatusCode: resp.status, Message: decodeMessage(resp.body)}
	}
	return nil
}

// Logout blacklists refreshToken on the backend.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.call(ctx, c.http, http.MethodPost, "/users/logout/", encodeRefresh(refreshToken))
	return err
}

// ChangePassword updates the password of the given user.
func (c *Client) ChangePassword(ctx context.Context, pc account.PasswordChange) error {
	_, err := c.call(ctx, c.http, http.MethodPost, "/users/change-password/", encodePasswordChange(pc))
	return err
}

// Profile returns the identity of the session's user.
func (c *Client) Profile(ctx context.Context) (*account.Profile, error) {
	resp, err := c.call(ctx, c.http, http.MethodGet, "/users/comprador/", nil)
	if err != nil {
		return nil, err
	}
	return decodeProfile(resp.body)
}
