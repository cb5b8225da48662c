package catalog

import (
	"encoding/json"
	"strings"
)

// Product is a single catalog entry. SKU is the business key; ID is assigned
// by the store on insert and never changes afterwards.
type Product struct {
	ID          int64    `json:"id"`
	ProductName string   `json:"product_name"`
	PhotoURL    string   `json:"photo_url"`
	Barcode     string   `json:"barcode"`
	PriceCents  int64    `json:"price_cents"`
	SKU         string   `json:"sku"`
	Producer    Producer `json:"producer"`
}

// Producer says which producer a product belongs to. The zero value is
// Universal: visible to every producer.
type Producer struct {
	name   string
	scoped bool
}

// Universal returns the producer of products that are visible regardless of
// the requested producer.
func Universal() Producer {
	return Producer{}
}

// ScopedTo returns a producer scoped to name. A blank name yields Universal.
func ScopedTo(name string) Producer {
	if strings.TrimSpace(name) == "" {
		return Universal()
	}
	return Producer{name: name, scoped: true}
}

// ProducerFromColumn converts the stored producer column back into a Producer.
func ProducerFromColumn(column string) Producer {
	if column == "" {
		return Universal()
	}
	return Producer{name: column, scoped: true}
}

// IsUniversal reports whether p is the universal producer.
func (p Producer) IsUniversal() bool {
	return !p.scoped
}

// Name returns the producer name and whether p is scoped.
func (p Producer) Name() (string, bool) {
	return p.name, p.scoped
}

// Column returns the stored representation; universal is the empty string.
func (p Producer) Column() string {
	if !p.scoped {
		return ""
	}
	return p.name
}

func (p Producer) String() string {
	if !p.scoped {
		return "universal"
	}
	return p.name
}

// MarshalJSON encodes p as its column value so API clients keep seeing "" for
// universal products.
func (p Producer) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Column())
}

// UnmarshalJSON decodes the column representation written by MarshalJSON.
func (p *Producer) UnmarshalJSON(data []byte) error {
	var column string
	if err := json.Unmarshal(data, &column); err != nil {
		return err
	}
	*p = ProducerFromColumn(column)
	return nil
}
