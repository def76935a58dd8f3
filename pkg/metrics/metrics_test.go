package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestRegistryRecordsCacheLookups(t *testing.T) {
	r := NewRegistry()
	r.RecordCacheLookup(true)
	r.RecordCacheLookup(false)
	r.RecordCacheLookup(true)

	var hit dto.Metric
	if err := r.CacheHitsTotal.WithLabelValues("hit").Write(&hit); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := hit.GetCounter().GetValue(); got != 2 {
		t.Fatalf("hit count = %v, want 2", got)
	}

	var miss dto.Metric
	if err := r.CacheHitsTotal.WithLabelValues("miss").Write(&miss); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := miss.GetCounter().GetValue(); got != 1 {
		t.Fatalf("miss count = %v, want 1", got)
	}
}

func TestCollectorInterfaceDispatch(t *testing.T) {
	r := NewRegistry()
	var c Collector = r
	c.SetGauge("memtable_bytes", nil, 4096)

	var m dto.Metric
	if err := r.MemtableBytes.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 4096 {
		t.Fatalf("MemtableBytes = %v, want 4096", got)
	}
}

func TestRecordWriteUpdatesCounterAndHistogram(t *testing.T) {
	r := NewRegistry()
	r.RecordWrite("applied", 128, 0)

	var m dto.Metric
	if err := r.WritesTotal.WithLabelValues("applied").Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Fatalf("WritesTotal = %v, want 1", got)
	}

	var h dto.Metric
	if err := r.WriteBatchBytes.Write(&h); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := h.GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("WriteBatchBytes sample count = %v, want 1", got)
	}
	if got := h.GetHistogram().GetSampleSum(); got != 128 {
		t.Fatalf("WriteBatchBytes sample sum = %v, want 128", got)
	}
}
