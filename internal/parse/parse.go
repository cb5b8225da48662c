// Package parse decodes catalog documents into header-keyed rows.
//
// CSV is the primary format: the first record is the header and every later
// record becomes one catalog.Row. Text is decoded from the configured
// encoding first; UTF-8 input may carry a byte order mark. Documents that
// start with the zip signature are read as XLSX workbooks instead, using the
// first sheet.
//
// A malformed document yields a *catalog.ParseError. Whether that is fatal
// is up to the caller; the ingestion orchestrator logs it and continues
// with zero rows.
package parse

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// zipMagic starts every XLSX file.
var zipMagic = []byte("PK\x03\x04")

// Options configures a Parser.
type Options struct {
	// Encoding is a WHATWG label such as "utf-8", "windows-1252" or
	// "windows-1251". Empty means UTF-8.
	Encoding string

	// Comma is the CSV field delimiter. Zero means ','.
	Comma rune
}

// Parser turns catalog documents into rows. It is safe for concurrent use.
type Parser struct {
	enc     encoding.Encoding
	encName string
	comma   rune
}

// New validates opts and returns a Parser.
func New(opts Options) (*Parser, error) {
	enc, name, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	comma := opts.Comma
	if comma == 0 {
		comma = ','
	}
	if comma == '\r' || comma == '\n' || comma == '"' || comma == 0xFFFD {
		return nil, fmt.Errorf("invalid delimiter %q", comma)
	}
	return &Parser{enc: enc, encName: name, comma: comma}, nil
}

// Encoding returns the canonical name of the configured text encoding.
func (p *Parser) Encoding() string {
	return p.encName
}

func lookupEncoding(label string) (encoding.Encoding, string, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	switch label {
	case "", "utf-8", "utf8":
		// Strips a leading BOM and replaces invalid sequences with U+FFFD.
		return unicode.UTF8BOM, "utf-8", nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = label
	}
	if name == "utf-8" {
		return unicode.UTF8BOM, name, nil
	}
	return enc, name, nil
}

// ParseFile reads the document at path. XLSX is chosen by extension or by
// the zip signature; everything else is read as CSV.
func (p *Parser) ParseFile(path string) ([]catalog.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &catalog.ParseError{Source: path, Err: err}
	}
	defer f.Close()

	return p.parse(f, filepath.Base(path), strings.EqualFold(filepath.Ext(path), ".xlsx"))
}

// Parse reads a document from r. source names it in errors.
func (p *Parser) Parse(r io.Reader, source string) ([]catalog.Row, error) {
	return p.parse(r, source, false)
}

func (p *Parser) parse(r io.Reader, source string, xlsx bool) ([]catalog.Row, error) {
	br := bufio.NewReader(r)
	if !xlsx {
		head, _ := br.Peek(len(zipMagic))
		xlsx = bytes.Equal(head, zipMagic)
	}
	if xlsx {
		return readXLSX(br, source)
	}
	return p.readCSV(br, source)
}

func (p *Parser) readCSV(r io.Reader, source string) ([]catalog.Row, error) {
	cr := csv.NewReader(transform.NewReader(r, p.enc.NewDecoder()))
	cr.Comma = p.comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			pe := &catalog.ParseError{Source: source, Err: err}
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				pe.Line = csvErr.Line
				pe.Err = csvErr.Err
			}
			return nil, pe
		}
		records = append(records, rec)
	}
	return rowsFromRecords(records), nil
}

func readXLSX(r io.Reader, source string) ([]catalog.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &catalog.ParseError{Source: source, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &catalog.ParseError{Source: source, Err: errors.New("workbook has no sheets")}
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &catalog.ParseError{Source: source, Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	return rowsFromRecords(records), nil
}

// rowsFromRecords keys every record after the first by the header labels.
// Blank records are skipped; cells beyond the header are dropped and
// missing trailing cells are left out of the row.
func rowsFromRecords(records [][]string) []catalog.Row {
	if len(records) == 0 {
		return nil
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]catalog.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isEmptyRecord(rec) {
			continue
		}
		row := make(catalog.Row, len(header))
		for i, h := range header {
			if h == "" || i >= len(rec) {
				continue
			}
			row[h] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
