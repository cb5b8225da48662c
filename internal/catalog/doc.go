// Package catalog holds the product catalog domain: the Product entity, the
// row normalizer that maps loosely-typed CSV rows onto it, the reconciliation
// engine that applies a batch of rows to an entity store, and the read-side
// query service.
//
// # Reconciliation
//
// A batch is applied inside a single store transaction. Each row is
// normalized, looked up by SKU, and either overwrites the existing product
// (ID and SKU untouched) or is inserted as a new product. The transaction is
// committed once after every row succeeded; any failing row rolls the whole
// batch back:
//
//	res, err := catalog.Apply(ctx, store, rows)
//
// Callers that already hold a transaction use [Reconcile] directly and keep
// ownership of commit and rollback.
//
// # Visibility
//
// A product is either universal (stored producer "") or scoped to one
// producer. Listing without a producer returns only universal products;
// listing for a producer returns that producer's products together with
// every universal product.
//
// # Error Handling
//
// Errors are typed so callers can branch with errors.Is and errors.As:
//
//   - [ErrNotFound]: a listed page is empty
//   - [ErrInvalidQuery]: negative offset and similar caller mistakes
//   - [*MissingKeyError]: a row has no SKU; fatal to its batch
//   - [*ParseError]: a document or field could not be parsed
//   - [*TransactionError]: the store mutation failed and was rolled back
//   - [*FetchError]: the catalog document could not be retrieved
//
// [MapError] turns any of them into a user-facing message with a support code.
package catalog
