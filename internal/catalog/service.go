package catalog

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/logging"
)

// Default pagination bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageKey identifies one cached list page.
type PageKey struct {
	Producer Producer
	Skip     int
	Limit    int
}

// Fill stores a page read after a cache miss.
type Fill func(ctx context.Context, products []Product)

// PageCache caches list pages. Implementations treat their own failures as
// misses; Invalidate errors are logged by the service and not returned.
type PageCache interface {
	// Get returns a cached page. On a miss it returns a Fill bound to the
	// cache state Get observed, so a page read before an invalidation is
	// never served after it.
	Get(ctx context.Context, key PageKey) ([]Product, Fill, bool)

	Invalidate(ctx context.Context) error
}

// Options configures a Service. Zero limits fall back to DefaultLimit and
// MaxLimit.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	Cache        PageCache
}

// Service is the catalog's entry point: batch reconciliation on the write
// side, producer-scoped pagination on the read side.
type Service struct {
	store        Store
	cache        PageCache
	defaultLimit int
	maxLimit     int
}

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:        store,
		cache:        opts.Cache,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
	}
	if s.maxLimit <= 0 {
		s.maxLimit = MaxLimit
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = DefaultLimit
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Limits returns the effective default and maximum page size.
func (s *Service) Limits() (defaultLimit, maxLimit int) {
	return s.defaultLimit, s.maxLimit
}

// List returns one page of products visible to producer, ordered by id.
// A limit of zero or less uses the default; larger than the maximum is
// clamped. An empty page returns ErrNotFound.
func (s *Service) List(ctx context.Context, producer Producer, skip, limit int) ([]Product, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", ErrInvalidQuery)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	var fill Fill
	if s.cache != nil {
		products, f, ok := s.cache.Get(ctx, PageKey{Producer: producer, Skip: skip, Limit: limit})
		if ok {
			return products, nil
		}
		fill = f
	}

	products, err := s.store.List(ctx, ListQuery{Producer: producer, Offset: skip, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}

	if fill != nil {
		fill(ctx, products)
	}
	return products, nil
}

// Reconcile applies rows as one atomic batch and invalidates cached pages
// after a successful commit.
func (s *Service) Reconcile(ctx context.Context, rows []Row) (ReconcileResult, error) {
	res, err := Apply(ctx, s.store, rows)
	if err != nil {
		return res, err
	}
	s.Invalidate(ctx)
	return res, nil
}

// Invalidate drops every cached page. Cache failures are logged only.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logging.FromContext(ctx).Warn("page cache invalidation failed", "error", err)
	}
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
