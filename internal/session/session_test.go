package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data    map[string]Credentials
	saveErr error
	delErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]Credentials)}
}

func (f *fakeStore) Load(_ context.Context, id string) (Credentials, error) {
	return f.data[id], nil
}

func (f *fakeStore) Save(_ context.Context, id string, c Credentials) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data[id] = c
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	delete(f.data, id)
	return f.delErr
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	s, err := Open(ctx, store, "sid")
	require.NoError(t, err)
	assert.True(t, s.Credentials().IsZero())

	require.NoError(t, s.SetCredentials(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))
	assert.Equal(t, "a1", s.AccessToken())
	assert.Equal(t, Credentials{AccessToken: "a1", RefreshToken: "r1"}, store.data["sid"])

	require.NoError(t, s.SetAccessToken(ctx, "a2"))
	assert.Equal(t, "a2", s.AccessToken())
	assert.Equal(t, "r1", s.RefreshToken())

	reopened, err := Open(ctx, store, "sid")
	require.NoError(t, err)
	assert.Equal(t, "a2", reopened.AccessToken())

	require.NoError(t, s.Clear(ctx))
	assert.True(t, s.Credentials().IsZero())
	assert.NotContains(t, store.data, "sid")
}

func TestSession_SaveFailureKeepsPreviousPair(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s, err := Open(ctx, store, "sid")
	require.NoError(t, err)
	require.NoError(t, s.SetCredentials(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	store.saveErr = errors.New("disk full")
	require.Error(t, s.SetAccessToken(ctx, "a2"))
	assert.Equal(t, "a1", s.AccessToken())
}

func TestSession_ClearFailureStillLogsOut(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s, err := Open(ctx, store, "sid")
	require.NoError(t, err)
	require.NoError(t, s.SetCredentials(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	store.delErr = errors.New("unavailable")
	require.Error(t, s.Clear(ctx))
	assert.True(t, s.Credentials().IsZero())
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, From(ctx))

	_, err := Require(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	s, err := Open(ctx, newFakeStore(), "sid")
	require.NoError(t, err)

	got, err := Require(With(ctx, s))
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestMiddleware(t *testing.T) {
	store := newFakeStore()
	existing := uuid.NewString()
	store.data[existing] = Credentials{AccessToken: "tok", RefreshToken: "ref"}

	var seen *Session
	h := Middleware(store, CookieConfig{Name: "sid"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = From(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("reuses valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: existing})
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		require.NotNil(t, seen)
		assert.Equal(t, existing, seen.ID())
		assert.Equal(t, "tok", seen.AccessToken())
	})

	t.Run("replaces malformed cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc"})
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		require.NotNil(t, seen)
		assert.NotEqual(t, "../../etc", seen.ID())
		_, err := uuid.Parse(seen.ID())
		require.NoError(t, err)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, seen.ID(), cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})
}
