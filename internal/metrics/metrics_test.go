package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{409, "4xx"},
		{500, "5xx"},
		{99, "unknown"},
		{600, "unknown"},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.code); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/products/", "2xx"))
	RecordRequest("GET", "/products/", 200, 10*time.Millisecond)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/products/", "2xx"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestRecordRun(t *testing.T) {
	inserted := testutil.ToFloat64(ingestRowsTotal.WithLabelValues("inserted"))
	updated := testutil.ToFloat64(ingestRowsTotal.WithLabelValues("updated"))
	runs := testutil.ToFloat64(ingestRunsTotal.WithLabelValues("succeeded"))

	RecordRun("succeeded", 3, 2, time.Second)

	if got := testutil.ToFloat64(ingestRowsTotal.WithLabelValues("inserted")) - inserted; got != 3 {
		t.Errorf("inserted delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(ingestRowsTotal.WithLabelValues("updated")) - updated; got != 2 {
		t.Errorf("updated delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ingestRunsTotal.WithLabelValues("succeeded")) - runs; got != 1 {
		t.Errorf("runs delta = %v, want 1", got)
	}
	if testutil.ToFloat64(ingestLastSuccess) == 0 {
		t.Error("last success gauge not set")
	}
}
