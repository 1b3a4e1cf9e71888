// Package memory provides process-local implementations of the storefront's
// stores. State is lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/session"
)

var (
	_ session.Store   = (*SessionStore)(nil)
	_ cart.Repository = (*CartRepository)(nil)
)

// SessionStore keeps credential pairs in a map.
type SessionStore struct {
	mu    sync.RWMutex
	creds map[string]session.Credentials
}

func NewSessionStore() *SessionStore {
	return &SessionStore{creds: make(map[string]session.Credentials)}
}

func (s *SessionStore) Load(_ context.Context, id string) (session.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds[id], nil
}

func (s *SessionStore) Save(_ context.Context, id string, c session.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[id] = c
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, id)
	return nil
}

// CartRepository keeps carts in a map. Carts are copied on the way in and
// out so callers never share item slices.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string][]cart.Item
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string][]cart.Item)}
}

func (r *CartRepository) Get(_ context.Context, sessionID string) (*cart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &cart.Cart{Items: slices.Clone(r.carts[sessionID])}, nil
}

func (r *CartRepository) Save(_ context.Context, sessionID string, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(c.Items) == 0 {
		delete(r.carts, sessionID)
		return nil
	}
	r.carts[sessionID] = slices.Clone(c.Items)
	return nil
}
