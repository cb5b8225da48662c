package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"not found", ErrNotFound, "CAT001"},
		{"wrapped not found", fmt.Errorf("list: %w", ErrNotFound), "CAT001"},
		{"invalid query", fmt.Errorf("%w: skip", ErrInvalidQuery), "CAT002"},
		{"missing key", &MissingKeyError{Header: SKUHeader, Row: 3}, "ING001"},
		{"parse error", &ParseError{Field: AttrPriceCents, Value: "x"}, "ING002"},
		{"fetch error", &FetchError{Locator: "u", Err: errors.New("404")}, "ING003"},
		{"run in progress", errors.New("ingestion run in progress"), "ING004"},
		{"duplicate key inside transaction", &TransactionError{Op: "insert", Err: errors.New("ERROR: duplicate key value violates unique constraint")}, "DB001"},
		{"unique constraint", errors.New("UNIQUE constraint failed: products.sku"), "DB001"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB002"},
		{"deadline", context.DeadlineExceeded, "DB004"},
		{"deadlock", errors.New("deadlock detected"), "DB005"},
		{"cancelled", context.Canceled, "REQ001"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
	got := FormatUserError(ErrNotFound)
	if !strings.Contains(got, "CAT001") || !strings.Contains(got, "No products found") {
		t.Errorf("FormatUserError() = %q", got)
	}
}

func TestErrorStrings(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&MissingKeyError{Header: SKUHeader, Row: 2}, `row 2: missing key column "sku (unique id)"`},
		{&MissingKeyError{Header: SKUHeader}, `missing key column "sku (unique id)"`},
		{&ParseError{Source: "a.csv", Line: 4, Err: errors.New("bad quote")}, "parse error in a.csv at line 4: bad quote"},
		{&ParseError{Line: 1, Field: "price_cents", Value: "x", Err: errors.New("not a number")}, `parse error at line 1: field price_cents value "x": not a number`},
		{&TransactionError{Op: "commit", Err: errors.New("boom")}, "transaction commit failed: boom"},
		{&TransactionError{Op: "insert", Row: 5, Err: errors.New("boom")}, "transaction insert failed at row 5: boom"},
		{&FetchError{Locator: "http://x", Err: errors.New("status 404")}, "fetch http://x: status 404"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
