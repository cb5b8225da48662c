package catalog

import "context"

// Tx is the set of entity operations the reconciliation engine needs inside
// a transaction.
type Tx interface {
	// FindBySKU returns the product with the given SKU. The bool is false
	// when no product has it.
	FindBySKU(ctx context.Context, sku string) (Product, bool, error)

	// Insert stores a new product and sets p.ID to the store-assigned id.
	Insert(ctx context.Context, p *Product) error

	// Update overwrites every non-key attribute of the product with p.ID.
	Update(ctx context.Context, p Product) error
}

// Transaction is a Tx the caller can finish. Rollback after Commit is a no-op.
type Transaction interface {
	Tx
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ListQuery selects one page of visible products ordered by id.
type ListQuery struct {
	Producer Producer
	Offset   int
	Limit    int
}

// Store is a transactional entity store with a uniqueness constraint on SKU.
type Store interface {
	Begin(ctx context.Context) (Transaction, error)

	// List returns products visible to q.Producer: the universal products,
	// plus the producer's own products when it is scoped.
	List(ctx context.Context, q ListQuery) ([]Product, error)

	Ping(ctx context.Context) error
	Close() error
}
