package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

func TestService_Visibility(t *testing.T) {
	s := openStore(t)
	svc := catalog.NewService(s, catalog.Options{})
	ctx := context.Background()

	if _, err := svc.Reconcile(ctx, []catalog.Row{row("A", "1", ""), row("B", "2", "Acme")}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	tests := []struct {
		name     string
		producer catalog.Producer
		want     []string
	}{
		{"no filter", catalog.Universal(), []string{"A"}},
		{"Acme", catalog.ScopedTo("Acme"), []string{"A", "B"}},
		{"Other", catalog.ScopedTo("Other"), []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.producer, 0, 10)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %d products, want %d", len(got), len(tt.want))
			}
			for i, sku := range tt.want {
				if got[i].SKU != sku {
					t.Errorf("List()[%d].SKU = %q, want %q", i, got[i].SKU, sku)
				}
			}
		})
	}
}

func TestService_Pagination(t *testing.T) {
	s := openStore(t)
	svc := catalog.NewService(s, catalog.Options{})
	ctx := context.Background()

	var batch []catalog.Row
	for i := 0; i < 15; i++ {
		batch = append(batch, row(fmt.Sprintf("SKU-%02d", i), "1", ""))
	}
	if _, err := svc.Reconcile(ctx, batch); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	first, err := svc.List(ctx, catalog.Universal(), 0, 10)
	if err != nil {
		t.Fatalf("List(0, 10) error = %v", err)
	}
	if len(first) != 10 {
		t.Errorf("List(0, 10) = %d products, want 10", len(first))
	}

	second, err := svc.List(ctx, catalog.Universal(), 10, 10)
	if err != nil {
		t.Fatalf("List(10, 10) error = %v", err)
	}
	if len(second) != 5 {
		t.Errorf("List(10, 10) = %d products, want 5", len(second))
	}
	if second[0].ID <= first[len(first)-1].ID {
		t.Errorf("pages overlap or are unordered: %d <= %d", second[0].ID, first[len(first)-1].ID)
	}

	if _, err := svc.List(ctx, catalog.Universal(), 15, 10); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("List(15, 10) error = %v, want ErrNotFound", err)
	}
}

func TestService_LimitBounds(t *testing.T) {
	s := openStore(t)
	svc := catalog.NewService(s, catalog.Options{DefaultLimit: 3, MaxLimit: 5})
	ctx := context.Background()

	var batch []catalog.Row
	for i := 0; i < 8; i++ {
		batch = append(batch, row(fmt.Sprintf("SKU-%d", i), "1", ""))
	}
	if _, err := svc.Reconcile(ctx, batch); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, 3},
		{-1, 3},
		{4, 4},
		{50, 5},
	}
	for _, tt := range tests {
		got, err := svc.List(ctx, catalog.Universal(), 0, tt.limit)
		if err != nil {
			t.Fatalf("List(limit=%d) error = %v", tt.limit, err)
		}
		if len(got) != tt.want {
			t.Errorf("List(limit=%d) = %d products, want %d", tt.limit, len(got), tt.want)
		}
	}

	if _, err := svc.List(ctx, catalog.Universal(), -1, 10); !errors.Is(err, catalog.ErrInvalidQuery) {
		t.Errorf("List(skip=-1) error = %v, want ErrInvalidQuery", err)
	}
}

func TestService_NotFound(t *testing.T) {
	svc := catalog.NewService(openStore(t), catalog.Options{})

	_, err := svc.List(context.Background(), catalog.ScopedTo("Ghost"), 0, 10)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("List(Ghost) error = %v, want ErrNotFound", err)
	}
}

// memoryCache is a PageCache that counts hits and invalidations.
type memoryCache struct {
	mu          sync.Mutex
	pages       map[catalog.PageKey][]catalog.Product
	hits        int
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: make(map[catalog.PageKey][]catalog.Product)}
}

func (c *memoryCache) Get(_ context.Context, key catalog.PageKey) ([]catalog.Product, catalog.Fill, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pages[key]; ok {
		c.hits++
		return p, nil, true
	}
	fill := func(_ context.Context, products []catalog.Product) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.pages[key] = products
	}
	return nil, fill, false
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[catalog.PageKey][]catalog.Product)
	c.invalidated++
	return nil
}

func TestService_CacheInvalidatedByReconcile(t *testing.T) {
	cache := newMemoryCache()
	svc := catalog.NewService(openStore(t), catalog.Options{Cache: cache})
	ctx := context.Background()

	if _, err := svc.Reconcile(ctx, []catalog.Row{row("A", "1", "")}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if _, err := svc.List(ctx, catalog.Universal(), 0, 10); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if _, err := svc.List(ctx, catalog.Universal(), 0, 10); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}

	if _, err := svc.Reconcile(ctx, []catalog.Row{row("A", "2", "")}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	got, err := svc.List(ctx, catalog.Universal(), 0, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got[0].PriceCents != 2 {
		t.Errorf("stale page served: price = %d, want 2", got[0].PriceCents)
	}
	if cache.invalidated != 2 {
		t.Errorf("invalidations = %d, want 2", cache.invalidated)
	}
}

func TestService_EmptyPageNotCached(t *testing.T) {
	cache := newMemoryCache()
	svc := catalog.NewService(openStore(t), catalog.Options{Cache: cache})

	if _, err := svc.List(context.Background(), catalog.Universal(), 0, 10); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("List() error = %v, want ErrNotFound", err)
	}
	if len(cache.pages) != 0 {
		t.Errorf("cached %d pages, want 0", len(cache.pages))
	}
}

func TestService_Limits(t *testing.T) {
	tests := []struct {
		opts        catalog.Options
		wantDefault int
		wantMax     int
	}{
		{catalog.Options{}, catalog.DefaultLimit, catalog.MaxLimit},
		{catalog.Options{DefaultLimit: 20, MaxLimit: 50}, 20, 50},
		{catalog.Options{DefaultLimit: 80, MaxLimit: 50}, 50, 50},
	}
	for _, tt := range tests {
		svc := catalog.NewService(nil, tt.opts)
		d, m := svc.Limits()
		if d != tt.wantDefault || m != tt.wantMax {
			t.Errorf("Limits() = %d, %d; want %d, %d", d, m, tt.wantDefault, tt.wantMax)
		}
	}
}
