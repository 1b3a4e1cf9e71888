package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/session"
)

// --- Fakes shared by the package tests ---

type memStore struct {
	mu   sync.Mutex
	data map[string]session.Credentials
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]session.Credentials)}
}

func (m *memStore) Load(_ context.Context, id string) (session.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[id], nil
}

func (m *memStore) Save(_ context.Context, id string, c session.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = c
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// fakeBackend emulates the token-protected REST API. Access tokens listed in
// valid are accepted; anything else is answered with 401.
type fakeBackend struct {
	*httptest.Server
	mux *http.ServeMux

	mu           sync.Mutex
	valid        map[string]bool
	refreshTo    string
	refreshFails bool
	authHeaders  []string
	bodies       []string

	refreshCalls atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		mux:       http.NewServeMux(),
		valid:     map[string]bool{},
		refreshTo: "fresh-access",
	}
	fb.mux.HandleFunc("POST /users/refresh-token/", func(w http.ResponseWriter, r *http.Request) {
		fb.refreshCalls.Add(1)
		body, _ := io.ReadAll(r.Body)

		fb.mu.Lock()
		fails := fb.refreshFails
		next := fb.refreshTo
		fb.bodies = append(fb.bodies, string(body))
		fb.mu.Unlock()

		if fails {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message":"Error al refrescar el token: Token is invalid or expired"}`)
			return
		}
		fb.allow(next)
		_, _ = io.WriteString(w, `{"access":"`+next+`"}`)
	})
	fb.Server = httptest.NewServer(fb.mux)
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) allow(token string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.valid[token] = true
}

// protect wraps h with bearer validation and records every Authorization
// header and body it sees.
func (fb *fakeBackend) protect(pattern string, h http.HandlerFunc) {
	fb.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)

		fb.mu.Lock()
		fb.authHeaders = append(fb.authHeaders, auth)
		fb.bodies = append(fb.bodies, string(body))
		ok := len(auth) > len("Bearer ") && fb.valid[auth[len("Bearer "):]]
		fb.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Given token not valid for any token type"}`)
			return
		}
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		h(w, r)
	})
}

func (fb *fakeBackend) seenAuth() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.authHeaders...)
}

func newTestClient(t *testing.T, fb *fakeBackend) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: fb.URL + "/"})
	require.NoError(t, err)
	return c
}

func newSessionCtx(t *testing.T, creds session.Credentials) (context.Context, *session.Session, *memStore) {
	t.Helper()
	ctx := context.Background()
	store := newMemStore()
	s, err := session.Open(ctx, store, "sid")
	require.NoError(t, err)
	if !creds.IsZero() {
		require.NoError(t, s.SetCredentials(ctx, creds))
	}
	return session.With(ctx, s), s, store
}
