// Package sqlite implements catalog.Store on an embedded SQLite database
// using sqlx and the pure-Go modernc.org/sqlite driver. It backs local runs
// and the store-level tests; production deployments use the postgres store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JonMunkholm/catalog/internal/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS products(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_name TEXT NOT NULL DEFAULT '',
  photo_url TEXT NOT NULL DEFAULT '',
  barcode TEXT NOT NULL DEFAULT '',
  price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
  sku TEXT NOT NULL UNIQUE,
  producer TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_producer_id ON products(producer, id);
`

const selectColumns = `id, product_name, photo_url, barcode, price_cents, sku, producer`

// productRow is the column image of catalog.Product.
type productRow struct {
	ID          int64  `db:"id"`
	ProductName string `db:"product_name"`
	PhotoURL    string `db:"photo_url"`
	Barcode     string `db:"barcode"`
	PriceCents  int64  `db:"price_cents"`
	SKU         string `db:"sku"`
	Producer    string `db:"producer"`
}

func (r productRow) product() catalog.Product {
	return catalog.Product{
		ID:          r.ID,
		ProductName: r.ProductName,
		PhotoURL:    r.PhotoURL,
		Barcode:     r.Barcode,
		PriceCents:  r.PriceCents,
		SKU:         r.SKU,
		Producer:    catalog.ProducerFromColumn(r.Producer),
	}
}

// Store is a catalog.Store over SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens dsn (a file path or ":memory:") and creates the schema.
//
// The pool is limited to one connection: SQLite serializes writers anyway,
// and every ":memory:" connection would otherwise see its own database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (catalog.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

// List returns one page of products visible to q.Producer ordered by id.
func (s *Store) List(ctx context.Context, q catalog.ListQuery) ([]catalog.Product, error) {
	query := `SELECT ` + selectColumns + ` FROM products WHERE producer = ''`
	args := []any{}
	if name, scoped := q.Producer.Name(); scoped {
		query = `SELECT ` + selectColumns + ` FROM products WHERE (producer = ? OR producer = '')`
		args = append(args, name)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i, r := range rows {
		products[i] = r.product()
	}
	return products, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type transaction struct {
	tx *sqlx.Tx
}

func (t *transaction) FindBySKU(ctx context.Context, sku string) (catalog.Product, bool, error) {
	var row productRow
	err := t.tx.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM products WHERE sku = ?`, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, false, nil
	}
	if err != nil {
		return catalog.Product{}, false, err
	}
	return row.product(), true, nil
}

func (t *transaction) Insert(ctx context.Context, p *catalog.Product) error {
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO products(product_name, photo_url, barcode, price_cents, sku, producer)
VALUES (?, ?, ?, ?, ?, ?)`,
		p.ProductName, p.PhotoURL, p.Barcode, p.PriceCents, p.SKU, p.Producer.Column())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return nil
}

func (t *transaction) Update(ctx context.Context, p catalog.Product) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE products
SET product_name = ?, photo_url = ?, barcode = ?, price_cents = ?, producer = ?
WHERE id = ?`,
		p.ProductName, p.PhotoURL, p.Barcode, p.PriceCents, p.Producer.Column(), p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("update product %d: %d rows affected", p.ID, n)
	}
	return nil
}

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

func (t *transaction) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
