// Package postgres implements catalog.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Schema is created by EnsureSchema. Migrations are out of scope; the table
// is only created when missing.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
    id           BIGSERIAL PRIMARY KEY,
    product_name TEXT   NOT NULL DEFAULT '',
    photo_url    TEXT   NOT NULL DEFAULT '',
    barcode      TEXT   NOT NULL DEFAULT '',
    price_cents  BIGINT NOT NULL CHECK (price_cents >= 0),
    sku          TEXT   NOT NULL UNIQUE,
    producer     TEXT   NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_producer_id ON products (producer, id);
`

const selectColumns = `id, product_name, photo_url, barcode, price_cents, sku, producer`

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a catalog.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect parses url, opens a pool with cfg applied and verifies it with a ping.
func Connect(ctx context.Context, url string, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the products table and its index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Begin starts a read-committed transaction.
func (s *Store) Begin(ctx context.Context) (catalog.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

// List returns one page of products visible to q.Producer ordered by id.
func (s *Store) List(ctx context.Context, q catalog.ListQuery) ([]catalog.Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if name, scoped := q.Producer.Name(); scoped {
		rows, err = s.pool.Query(ctx, `
SELECT `+selectColumns+`
FROM products
WHERE producer = $1 OR producer = ''
ORDER BY id
LIMIT $2 OFFSET $3`, name, q.Limit, q.Offset)
	} else {
		rows, err = s.pool.Query(ctx, `
SELECT `+selectColumns+`
FROM products
WHERE producer = ''
ORDER BY id
LIMIT $1 OFFSET $2`, q.Limit, q.Offset)
	}
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Ping checks that the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p        catalog.Product
		producer string
	)
	err := row.Scan(&p.ID, &p.ProductName, &p.PhotoURL, &p.Barcode, &p.PriceCents, &p.SKU, &producer)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Producer = catalog.ProducerFromColumn(producer)
	return p, nil
}

type transaction struct {
	tx pgx.Tx
}

// FindBySKU locks the matching row until the transaction ends so a
// concurrent writer cannot overwrite it between lookup and update.
func (t *transaction) FindBySKU(ctx context.Context, sku string) (catalog.Product, bool, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+selectColumns+` FROM products WHERE sku = $1 FOR UPDATE`, sku)
	if err != nil {
		return catalog.Product{}, false, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, false, nil
	}
	if err != nil {
		return catalog.Product{}, false, err
	}
	return p, true, nil
}

func (t *transaction) Insert(ctx context.Context, p *catalog.Product) error {
	err := t.tx.QueryRow(ctx, `
INSERT INTO products (product_name, photo_url, barcode, price_cents, sku, producer)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		p.ProductName, p.PhotoURL, p.Barcode, p.PriceCents, p.SKU, p.Producer.Column(),
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("duplicate key for sku %q: %w", p.SKU, err)
		}
		return err
	}
	return nil
}

func (t *transaction) Update(ctx context.Context, p catalog.Product) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE products
SET product_name = $1, photo_url = $2, barcode = $3, price_cents = $4, producer = $5
WHERE id = $6`,
		p.ProductName, p.PhotoURL, p.Barcode, p.PriceCents, p.Producer.Column(), p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update product %d: %d rows affected", p.ID, tag.RowsAffected())
	}
	return nil
}

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *transaction) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
