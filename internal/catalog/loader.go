package catalog

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-storefront/internal/backend"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// ErrNoProducts marks a load that succeeded but returned an empty catalog.
var ErrNoProducts = errors.New("no products found")

// User-facing load failure messages.
const (
	MsgNoProducts = "No se encontraron productos"
	MsgLoadFailed = "Hubo un error al cargar los productos"
)

// State is the catalog loading state.
type State int

const (
	Loading State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// Snapshot is a consistent view of a Loader. Products is empty unless State
// is Loaded; Message is set only when State is Failed.
type Snapshot struct {
	State    State
	Products []product.Product
	Message  string
	Err      error
}

// Loader fetches the catalog for one session and remembers the outcome.
// A fresh Loader is in the Loading state until its first Load finishes.
type Loader struct {
	repo       product.Repository
	categories *Categories

	// loadMu serializes loads; mu guards the fields below.
	loadMu  sync.Mutex
	mu      sync.RWMutex
	started bool
	state   State
	items   []product.Product
	message string
	err     error
}

// NewLoader creates a Loader. categories may be nil.
func NewLoader(repo product.Repository, categories *Categories) *Loader {
	return &Loader{repo: repo, categories: categories}
}

// Load fetches products (and categories, concurrently) and records the
// outcome. Each call starts over from Loading.
func (l *Loader) Load(ctx context.Context) Snapshot {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()
	return l.load(ctx)
}

// Ensure loads the catalog unless a load already ran.
func (l *Loader) Ensure(ctx context.Context) Snapshot {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()
	if l.isStarted() {
		return l.Snapshot()
	}
	return l.load(ctx)
}

// Snapshot returns the current state without loading.
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		State:    l.state,
		Products: slices.Clone(l.items),
		Message:  l.message,
		Err:      l.err,
	}
}

func (l *Loader) isStarted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

func (l *Loader) load(ctx context.Context) Snapshot {
	l.set(Loading, nil, nil)
	lg := zctx.From(ctx)

	var products []product.Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = l.repo.List(gctx)
		return err
	})
	if l.categories != nil {
		g.Go(func() error {
			// Categories are optional for browsing; a failure only empties the cache.
			if err := l.categories.Fetch(gctx); err != nil {
				lg.Warn("Fetch categories", zap.Error(err))
			}
			return nil
		})
	}

	switch err := g.Wait(); {
	case err != nil:
		lg.Warn("Load catalog", zap.Error(err))
		l.set(Failed, nil, err)
	case len(products) == 0:
		l.set(Failed, nil, ErrNoProducts)
	default:
		lg.Debug("Catalog loaded", zap.Int("products", len(products)))
		l.set(Loaded, products, nil)
	}
	return l.Snapshot()
}

func (l *Loader) set(state State, items []product.Product, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = true
	l.state = state
	l.items = items
	l.err = err
	l.message = ""
	if err != nil {
		l.message = failureMessage(err)
	}
}

func failureMessage(err error) string {
	if errors.Is(err, ErrNoProducts) {
		return MsgNoProducts
	}
	return backend.UserMessage(err, MsgLoadFailed)
}
