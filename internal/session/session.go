// Package session holds the per-visitor credential pair and carries it through
// request contexts so outbound backend calls can authenticate on behalf of the
// visitor that triggered them.
package session

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrNoSession is returned when an operation needs a session but the context
// does not carry one.
var ErrNoSession = errors.New("no session in context")

// Credentials is the access/refresh token pair issued by the backend at login.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// IsZero reports whether neither token is set.
func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Store persists credential pairs keyed by session ID.
type Store interface {
	// Load returns the stored pair, or zero Credentials when none exists.
	Load(ctx context.Context, id string) (Credentials, error)
	Save(ctx context.Context, id string, creds Credentials) error
	Delete(ctx context.Context, id string) error
}

// Session is the credential state of a single visitor. At most one pair is
// held at a time; every write goes straight through to the Store.
type Session struct {
	id    string
	store Store

	mu    sync.RWMutex
	creds Credentials
}

// Open loads the session identified by id from store.
func Open(ctx context.Context, store Store, id string) (*Session, error) {
	creds, err := store.Load(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "load session %s", id)
	}
	return &Session{id: id, store: store, creds: creds}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Credentials returns a snapshot of the current pair.
func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// AccessToken returns the current access token, or "" when logged out.
func (s *Session) AccessToken() string {
	return s.Credentials().AccessToken
}

// RefreshToken returns the current refresh token, or "" when logged out.
func (s *Session) RefreshToken() string {
	return s.Credentials().RefreshToken
}

// SetCredentials replaces the whole pair, as done on login.
func (s *Session) SetCredentials(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, s.id, creds); err != nil {
		return errors.Wrap(err, "save credentials")
	}
	s.creds = creds
	return nil
}

// SetAccessToken overwrites the access token and keeps the refresh token.
func (s *Session) SetAccessToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.creds
	next.AccessToken = token
	if err := s.store.Save(ctx, s.id, next); err != nil {
		return errors.Wrap(err, "save access token")
	}
	s.creds = next
	return nil
}

// Clear drops both tokens. The in-memory pair is cleared even if the store
// fails, so a broken store never keeps a visitor logged in.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = Credentials{}
	if err := s.store.Delete(ctx, s.id); err != nil {
		return errors.Wrap(err, "delete credentials")
	}
	return nil
}

type sessionKey struct{}

// With returns a copy of ctx carrying s.
func With(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// From returns the session carried by ctx, or nil.
func From(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// Require is like From but returns ErrNoSession when ctx carries none.
func Require(ctx context.Context) (*Session, error) {
	s := From(ctx)
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}
