package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// connectTest opens the database named by CATALOG_TEST_DATABASE_URL and
// resets the products table. The test is skipped when the variable is unset.
func connectTest(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("CATALOG_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CATALOG_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Connect(ctx, url, PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE products RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestStore_ApplyAndList(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	rows := []catalog.Row{
		{catalog.SKUHeader: "A", "price cents": "100", "producer": ""},
		{catalog.SKUHeader: "B", "price cents": "200", "producer": "Acme"},
	}
	res, err := catalog.Apply(ctx, s, rows)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}

	universal, err := s.List(ctx, catalog.ListQuery{Producer: catalog.Universal(), Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(universal) != 1 || universal[0].SKU != "A" {
		t.Errorf("List(universal) = %+v, want [A]", universal)
	}

	acme, err := s.List(ctx, catalog.ListQuery{Producer: catalog.ScopedTo("Acme"), Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(acme) != 2 {
		t.Errorf("List(Acme) returned %d products, want 2", len(acme))
	}

	// Second run updates in place.
	rows[0]["price cents"] = "150"
	res, err = catalog.Apply(ctx, s, rows)
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if res.Updated != 2 || res.Inserted != 0 {
		t.Errorf("second Apply() = %+v, want 2 updated", res)
	}
}

func TestStore_RollbackOnFailure(t *testing.T) {
	s := connectTest(t)
	ctx := context.Background()

	rows := []catalog.Row{
		{catalog.SKUHeader: "A", "price cents": "100"},
		{catalog.SKUHeader: "B", "price cents": "abc"},
	}
	_, err := catalog.Apply(ctx, s, rows)
	var parseErr *catalog.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Apply() error = %v, want *ParseError", err)
	}

	got, err := s.List(ctx, catalog.ListQuery{Producer: catalog.Universal(), Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() after rollback = %d products, want 0", len(got))
	}
}
