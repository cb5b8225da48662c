package catalog

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// SKUHeader is the literal column label that carries the business key.
const SKUHeader = "sku (unique id)"

// Canonical attribute names produced by NormalizeRow.
const (
	AttrProductName = "product_name"
	AttrPhotoURL    = "photo_url"
	AttrBarcode     = "barcode"
	AttrPriceCents  = "price_cents"
	AttrSKU         = "sku"
	AttrProducer    = "producer"
)

// Attributes lists every non-id attribute a Product requires, in column order.
var Attributes = []string{
	AttrProductName,
	AttrPhotoURL,
	AttrBarcode,
	AttrPriceCents,
	AttrSKU,
	AttrProducer,
}

var maxPriceCents = decimal.NewFromInt(math.MaxInt64)

// Row is one raw document row keyed by header label.
type Row map[string]string

// Fields is a normalized row keyed by canonical attribute name. Every entry
// of Attributes is present.
type Fields map[string]string

// AttributeName maps a raw header label to its canonical attribute name.
func AttributeName(header string) string {
	if header == SKUHeader {
		return AttrSKU
	}
	return strings.ReplaceAll(header, " ", "_")
}

// NormalizeRow maps a raw row onto canonical attribute names. Values pass
// through unchanged except producer, where absent or blank becomes "".
// Columns that do not name an attribute are ignored. A row without a SKU
// column, or with a blank SKU, yields a *MissingKeyError.
func NormalizeRow(row Row) (Fields, error) {
	fields := make(Fields, len(Attributes))
	for _, attr := range Attributes {
		fields[attr] = ""
	}

	var hasSKU bool
	for header, value := range row {
		attr := AttributeName(header)
		if _, known := fields[attr]; !known {
			continue
		}
		if attr == AttrSKU {
			// The labelled key column wins over a bare "sku" column.
			if header != SKUHeader {
				if _, labelled := row[SKUHeader]; labelled {
					continue
				}
			}
			hasSKU = true
		}
		fields[attr] = value
	}

	if !hasSKU || strings.TrimSpace(fields[AttrSKU]) == "" {
		return nil, &MissingKeyError{Header: SKUHeader}
	}
	if strings.TrimSpace(fields[AttrProducer]) == "" {
		fields[AttrProducer] = ""
	}
	return fields, nil
}

// Product converts normalized fields into a Product without an ID.
func (f Fields) Product() (Product, error) {
	price, err := ParsePriceCents(f[AttrPriceCents])
	if err != nil {
		return Product{}, &ParseError{Field: AttrPriceCents, Value: f[AttrPriceCents], Err: err}
	}
	return Product{
		ProductName: f[AttrProductName],
		PhotoURL:    f[AttrPhotoURL],
		Barcode:     f[AttrBarcode],
		PriceCents:  price,
		SKU:         f[AttrSKU],
		Producer:    ScopedTo(f[AttrProducer]),
	}, nil
}

// ParsePriceCents parses a whole, non-negative number of minor units.
// Integral decimal forms such as "1000.00" are accepted.
func ParsePriceCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.New("not a number")
	}
	switch {
	case !d.IsInteger():
		return 0, errors.New("not a whole number of cents")
	case d.IsNegative():
		return 0, errors.New("negative price")
	case d.GreaterThan(maxPriceCents):
		return 0, errors.New("out of range")
	}
	return d.IntPart(), nil
}
