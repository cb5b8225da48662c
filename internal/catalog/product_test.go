package catalog

import (
	"encoding/json"
	"testing"
)

func TestProducer(t *testing.T) {
	tests := []struct {
		name       string
		p          Producer
		universal  bool
		wantColumn string
	}{
		{"zero value", Producer{}, true, ""},
		{"universal", Universal(), true, ""},
		{"scoped", ScopedTo("Acme"), false, "Acme"},
		{"blank scope", ScopedTo("  "), true, ""},
		{"from empty column", ProducerFromColumn(""), true, ""},
		{"from column", ProducerFromColumn("Acme"), false, "Acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsUniversal(); got != tt.universal {
				t.Errorf("IsUniversal() = %v, want %v", got, tt.universal)
			}
			if got := tt.p.Column(); got != tt.wantColumn {
				t.Errorf("Column() = %q, want %q", got, tt.wantColumn)
			}
		})
	}
}

func TestProduct_JSON(t *testing.T) {
	p := Product{ID: 7, SKU: "A", PriceCents: 100, Producer: Universal()}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m["producer"] != "" {
		t.Errorf("producer = %v, want empty string", m["producer"])
	}
	if m["price_cents"] != float64(100) {
		t.Errorf("price_cents = %v, want 100", m["price_cents"])
	}

	var back Product
	if err := json.Unmarshal([]byte(`{"sku":"B","producer":"Acme"}`), &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Producer != ScopedTo("Acme") {
		t.Errorf("Producer = %v, want Acme", back.Producer)
	}
}
