// Package workspace keeps the per-session view state of the storefront: the
// catalog load, the category cache and the two wizards.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/catalog"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/wizard"
)

// Deps are the collaborators every workspace is built from.
type Deps struct {
	Products   product.Repository
	Categories product.CategoryRepository
	Signer     wizard.Signer
	// SellerID is attached to products created through the entry wizard.
	SellerID int64
}

// Workspace is the view state of one session.
type Workspace struct {
	Catalog      *catalog.Loader
	Categories   *catalog.Categories
	ProductEntry *wizard.ProductEntry
	Registration *wizard.RegistrationWizard
}

func newWorkspace(d Deps) *Workspace {
	cats := catalog.NewCategories(d.Categories)
	return &Workspace{
		Catalog:      catalog.NewLoader(d.Products, cats),
		Categories:   cats,
		ProductEntry: wizard.NewProductEntry(d.Products, d.SellerID),
		Registration: wizard.NewRegistration(d.Signer),
	}
}

type entry struct {
	ws       *Workspace
	lastSeen time.Time
}

// Registry hands out workspaces by session ID and forgets idle ones.
type Registry struct {
	deps  Deps
	ttl   time.Duration
	limit int
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxWorkspaces caps the number of live workspaces. When the cap is
// reached, the least recently used workspace is dropped to make room. Each
// workspace may hold a full catalog snapshot, so the cap bounds memory when
// many visitors arrive without a session cookie. Zero means no cap.
func WithMaxWorkspaces(n int) Option {
	return func(r *Registry) {
		r.limit = n
	}
}

// NewRegistry creates a Registry. Workspaces unused for longer than ttl are
// removed by Cleanup; a zero ttl keeps them until Drop.
func NewRegistry(deps Deps, ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		deps:    deps,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns the workspace of sessionID, creating it on first use.
func (r *Registry) Get(sessionID string) *Workspace {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sessionID]; ok {
		e.lastSeen = now
		return e.ws
	}
	if r.limit > 0 && len(r.entries) >= r.limit {
		r.evictOldest()
	}
	ws := newWorkspace(r.deps)
	r.entries[sessionID] = &entry{ws: ws, lastSeen: now}
	return ws
}

// evictOldest drops the least recently used workspace. r.mu must be held.
func (r *Registry) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range r.entries {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	delete(r.entries, oldestID)
}

// Drop forgets the workspace of sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Cleanup removes workspaces idle for longer than the TTL and returns how
// many were removed.
func (r *Registry) Cleanup(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// StartCleanup launches a goroutine that runs Cleanup every ttl/2 until ctx
// is cancelled.
func (r *Registry) StartCleanup(ctx context.Context) {
	if r.ttl <= 0 {
		return
	}
	lg := zctx.From(ctx)
	go func() {
		ticker := time.NewTicker(r.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.Cleanup(now); n > 0 {
					lg.Debug("Evicted idle workspaces", zap.Int("count", n))
				}
			}
		}
	}()
}
