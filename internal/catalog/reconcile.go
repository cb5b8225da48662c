package catalog

import (
	"context"
	"errors"
)

// ContextCheckInterval is how often Reconcile checks for cancellation.
var ContextCheckInterval = 100

// ReconcileResult counts what a batch did.
type ReconcileResult struct {
	Rows     int `json:"rows"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// Reconcile applies rows to tx: a row whose SKU exists overwrites that
// product's attributes, any other row inserts a new product. A later row
// for a SKU seen earlier in the same batch overwrites it.
//
// Reconcile never commits or rolls back; the first error is returned and the
// caller must roll tx back.
func Reconcile(ctx context.Context, tx Tx, rows []Row) (ReconcileResult, error) {
	var res ReconcileResult

	for i, row := range rows {
		rowNum := i + 1

		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, &TransactionError{Op: "reconcile", Row: rowNum, Err: err}
			}
		}

		fields, err := NormalizeRow(row)
		if err != nil {
			var missing *MissingKeyError
			if errors.As(err, &missing) {
				missing.Row = rowNum
			}
			return res, err
		}

		incoming, err := fields.Product()
		if err != nil {
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				parseErr.Line = rowNum
			}
			return res, err
		}

		existing, found, err := tx.FindBySKU(ctx, incoming.SKU)
		if err != nil {
			return res, &TransactionError{Op: "lookup", Row: rowNum, Err: err}
		}

		if found {
			incoming.ID = existing.ID
			if err := tx.Update(ctx, incoming); err != nil {
				return res, &TransactionError{Op: "update", Row: rowNum, Err: err}
			}
			res.Updated++
		} else {
			if err := tx.Insert(ctx, &incoming); err != nil {
				return res, &TransactionError{Op: "insert", Row: rowNum, Err: err}
			}
			res.Inserted++
		}
		res.Rows++
	}

	return res, nil
}

// Apply reconciles rows inside a new transaction of store and commits once
// after every row succeeded. On any error nothing is persisted.
func Apply(ctx context.Context, store Store, rows []Row) (ReconcileResult, error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return ReconcileResult{}, &TransactionError{Op: "begin", Err: err}
	}
	// Rollback must run even when ctx is already cancelled.
	defer tx.Rollback(context.WithoutCancel(ctx))

	res, err := Reconcile(ctx, tx, rows)
	if err != nil {
		return ReconcileResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ReconcileResult{}, &TransactionError{Op: "commit", Err: err}
	}
	return res, nil
}
