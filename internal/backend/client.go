// Package backend is the storefront's client for the e-commerce REST backend.
//
// Every call made with a context that carries a session.Session is sent with
// the session's bearer token; an expired token is refreshed once per request
// (see authTransport).
package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a whole backend exchange, refresh and retry included.
const DefaultTimeout = 20 * time.Second

// maxBody bounds response bodies; product lists embed base64 images.
const maxBody = 64 << 20

const instrumentationName = "github.com/xenking/kart-storefront/internal/backend"

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. https://shop.example.com/.
	BaseURL string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Transport is the underlying round tripper, http.DefaultTransport when nil.
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client calls the backend REST API.
type Client struct {
	base   *url.URL
	header http.Header

	// http attaches credentials and refreshes them; raw does neither and is
	// used for login, signup and the refresh call itself.
	http *http.Client
	raw  *http.Client
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse backend URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("backend URL %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	next := cfg.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	traced := otelhttp.NewTransport(next,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
	)

	refreshes, err := mp.Meter(instrumentationName).Int64Counter("storefront.backend.token_refresh",
		metric.WithDescription("Access token refresh attempts by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create refresh counter")
	}

	c := &Client{
		base: base,
		header: http.Header{
			"Content-Type": []string{"application/json"},
			"Accept":       []string{"application/json"},
		},
		raw: &http.Client{Timeout: timeout, Transport: traced},
	}
	c.http = &http.Client{
		Timeout: timeout,
		Transport: &authTransport{
			next:      traced,
			refresh:   c.Refresh,
			refreshes: refreshes,
		},
	}
	return c, nil
}

// response is a fully read 2xx backend answer.
type response struct {
	status int
	body   []byte
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), r)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, v := range c.header {
		req.Header[k] = append([]string(nil), v...)
	}
	return req, nil
}

// do sends req and reads the body. Non-2xx answers become *StatusError.
func (c *Client) do(hc *http.Client, req *http.Request) (*response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s %s", req.Method, req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, body)
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

func (c *Client) call(ctx context.Context, hc *http.Client, method, path string, body []byte) (*response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return c.do(hc, req)
}

// Ping reports whether the backend answers HTTP at all. Any status below 500
// counts as reachable, since most endpoints reject anonymous callers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String(), http.NoBody)
	if err != nil {
		return errors.Wrap(err, "build ping")
	}
	resp, err := c.raw.Do(req)
	if err != nil {
		return errors.Wrap(err, "ping backend")
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return errors.Errorf("backend responded %d", resp.StatusCode)
	}
	return nil
}
