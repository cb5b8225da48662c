package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by List when the requested page is empty.
	ErrNotFound = errors.New("no products found")

	// ErrInvalidQuery is returned for list parameters the service cannot honor.
	ErrInvalidQuery = errors.New("invalid query")
)

// MissingKeyError reports a row without a usable SKU. Row is 1-based within
// the batch; zero when the row was normalized on its own.
type MissingKeyError struct {
	Header string
	Row    int
}

func (e *MissingKeyError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: missing key column %q", e.Row, e.Header)
	}
	return fmt.Sprintf("missing key column %q", e.Header)
}

// ParseError reports input that could not be decoded. Source names the
// document, Line is 1-based when known, Field and Value are set for
// single-field conversion failures.
type ParseError struct {
	Source string
	Line   int
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %s value %q", e.Field, e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransactionError reports a failed store mutation. The batch it belonged to
// has been rolled back.
type TransactionError struct {
	Op  string
	Row int
	Err error
}

func (e *TransactionError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("transaction %s failed at row %d: %v", e.Op, e.Row, e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// FetchError reports that the catalog document could not be retrieved.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
