package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s *Store, products ...catalog.Product) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer tx.Rollback(ctx)
	for i := range products {
		if err := tx.Insert(ctx, &products[i]); err != nil {
			t.Fatalf("Insert(%s) error = %v", products[i].SKU, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func product(sku string, producer catalog.Producer) catalog.Product {
	return catalog.Product{ProductName: "item " + sku, PriceCents: 250, SKU: sku, Producer: producer}
}

func TestTransaction_InsertFindUpdate(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(ctx)

	p := product("SKU-1", catalog.ScopedTo("acme"))
	if err := tx.Insert(ctx, &p); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if p.ID == 0 {
		t.Fatal("Insert() did not set ID")
	}

	got, found, err := tx.FindBySKU(ctx, "SKU-1")
	if err != nil || !found {
		t.Fatalf("FindBySKU() = %v, %v, want found", found, err)
	}
	if got.ID != p.ID || got.Producer != catalog.ScopedTo("acme") {
		t.Errorf("FindBySKU() = %+v, want id %d producer acme", got, p.ID)
	}

	got.PriceCents = 999
	got.Producer = catalog.Universal()
	if err := tx.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, _, _ := tx.FindBySKU(ctx, "SKU-1")
	if updated.PriceCents != 999 || !updated.Producer.IsUniversal() {
		t.Errorf("after Update = %+v", updated)
	}

	if _, found, err := tx.FindBySKU(ctx, "missing"); err != nil || found {
		t.Errorf("FindBySKU(missing) = %v, %v, want not found", found, err)
	}
}

func TestTransaction_Errors(t *testing.T) {
	s := openMemory(t)
	insert(t, s, product("DUP", catalog.Universal()))
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(ctx)

	dup := product("DUP", catalog.Universal())
	if err := tx.Insert(ctx, &dup); err == nil {
		t.Error("Insert(duplicate sku) error = nil")
	}

	if err := tx.Update(ctx, catalog.Product{ID: 4242, SKU: "ghost"}); err == nil {
		t.Error("Update(unknown id) error = nil")
	}
}

func TestTransaction_RollbackDiscards(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	p := product("TEMP", catalog.Universal())
	if err := tx.Insert(ctx, &p); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Errorf("second Rollback() error = %v, want nil", err)
	}

	got, err := s.List(ctx, catalog.ListQuery{Producer: catalog.Universal(), Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("List() after rollback = %d products, want 0", len(got))
	}
}

func TestList_Visibility(t *testing.T) {
	s := openMemory(t)
	insert(t, s,
		product("U1", catalog.Universal()),
		product("A1", catalog.ScopedTo("acme")),
		product("B1", catalog.ScopedTo("beta")),
		product("U2", catalog.Universal()),
		product("A2", catalog.ScopedTo("acme")),
	)

	tests := []struct {
		name  string
		query catalog.ListQuery
		want  []string
	}{
		{"universal", catalog.ListQuery{Producer: catalog.Universal(), Limit: 10}, []string{"U1", "U2"}},
		{"scoped", catalog.ListQuery{Producer: catalog.ScopedTo("acme"), Limit: 10}, []string{"U1", "A1", "U2", "A2"}},
		{"scoped page", catalog.ListQuery{Producer: catalog.ScopedTo("acme"), Offset: 1, Limit: 2}, []string{"A1", "U2"}},
		{"unknown producer", catalog.ListQuery{Producer: catalog.ScopedTo("nobody"), Limit: 10}, []string{"U1", "U2"}},
		{"past end", catalog.ListQuery{Producer: catalog.ScopedTo("beta"), Offset: 3, Limit: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d products, want %v", len(got), tt.want)
			}
			for i, p := range got {
				if p.SKU != tt.want[i] {
					t.Errorf("List()[%d].SKU = %q, want %q", i, p.SKU, tt.want[i])
				}
			}
		})
	}
}

func TestOpen_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	insert(t, s, product("KEEP", catalog.Universal()))
	s.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.List(ctx, catalog.ListQuery{Producer: catalog.Universal(), Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].SKU != "KEEP" {
		t.Errorf("List() after reopen = %+v, want KEEP", got)
	}
}
