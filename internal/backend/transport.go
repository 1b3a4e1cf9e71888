package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/session"
)

// errNoRefreshToken is returned by a refresh attempt when the session holds
// no refresh token.
var errNoRefreshToken = errors.New("no refresh token stored")

// maxErrorBody bounds how much of a 401 body is buffered before refreshing.
const maxErrorBody = 64 << 10

type retriedKey struct{}

// RefreshFunc exchanges a refresh token for a new access token.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, error)

// authTransport attaches the session's bearer token to outbound requests and
// recovers once from an expired access token.
//
// On a 401 the request is marked retried, the refresh token is exchanged and,
// on success, the request is resent exactly once with the new token. On
// refresh failure the session is cleared and the original 401 response is
// returned. Each request carries its own retry mark; concurrent requests do
// not share refresh attempts.
type authTransport struct {
	next      http.RoundTripper
	refresh   RefreshFunc
	refreshes metric.Int64Counter
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	sess := session.From(ctx)
	if sess == nil {
		return t.next.RoundTrip(req)
	}

	resp, err := t.next.RoundTrip(withBearer(req, sess.AccessToken()))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if retried, _ := ctx.Value(retriedKey{}).(bool); retried {
		return resp, nil
	}
	ctx = context.WithValue(ctx, retriedKey{}, true)

	// The original response may be handed back to the caller, so keep its
	// body readable after the connection is released.
	resp, err = bufferBody(resp)
	if err != nil {
		return nil, err
	}

	lg := zctx.From(ctx)
	access, err := t.refreshAccess(ctx, sess)
	if err != nil {
		t.record(ctx, "failed")
		lg.Warn("Token refresh failed, clearing session", zap.Error(err))
		if err := sess.Clear(ctx); err != nil {
			lg.Error("Clear session", zap.Error(err))
		}
		return resp, nil
	}
	t.record(ctx, "ok")

	retry, err := rewind(req.WithContext(ctx))
	if err != nil {
		lg.Warn("Request body cannot be replayed, skipping retry", zap.Error(err))
		return resp, nil
	}
	return t.next.RoundTrip(withBearer(retry, access))
}

func (t *authTransport) refreshAccess(ctx context.Context, sess *session.Session) (string, error) {
	refresh := sess.RefreshToken()
	if refresh == "" {
		return "", errNoRefreshToken
	}
	access, err := t.refresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	if err := sess.SetAccessToken(ctx, access); err != nil {
		return "", err
	}
	return access, nil
}

func (t *authTransport) record(ctx context.Context, result string) {
	if t.refreshes == nil {
		return
	}
	t.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// withBearer returns a shallow copy of req carrying token as a bearer
// credential. An empty token leaves the request unauthenticated.
func withBearer(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

// rewind prepares req for a second send, restoring its body when needed.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body is not replayable")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, errors.Wrap(err, "get body")
	}
	out := req.Clone(req.Context())
	out.Body = body
	return out, nil
}

func bufferBody(resp *http.Response) (*http.Response, error) {
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, errors.Wrap(err, "read unauthorized response")
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return resp, nil
}
