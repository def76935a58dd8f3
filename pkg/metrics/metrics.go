// Package metrics exposes the core's write-path and cache instrumentation
// through a small Collector interface, backed by a Prometheus registry.
// Grounded on the Collector shape and promauto.With(registry) wiring
// pattern used across the pack's metrics packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector captures counters, gauges and histograms.
type Collector interface {
	IncCounter(name string, labels map[string]string, delta float64)
	SetGauge(name string, labels map[string]string, value float64)
	ObserveHistogram(name string, labels map[string]string, value float64)
}

// Registry is a Collector backed by a dedicated Prometheus registry, with
// a fixed set of named instruments for the write path, the memtable, and
// the cache.
type Registry struct {
	registry *prometheus.Registry

	WritesTotal      *prometheus.CounterVec
	WriteBatchBytes  prometheus.Histogram
	MemtableBytes    prometheus.Gauge
	MemtableEntries  prometheus.Gauge
	CacheHitsTotal   *prometheus.CounterVec
	CacheChargeBytes prometheus.Gauge
}

// NewRegistry builds a Registry with every instrument registered against
// a fresh prometheus.Registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.WritesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsmdb_writes_total",
			Help: "Total write batches applied, by outcome.",
		},
		[]string{"outcome"},
	)
	r.WriteBatchBytes = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lsmdb_write_batch_bytes",
			Help:    "Encoded size of write batches, applied or rejected.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)
	r.MemtableBytes = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "lsmdb_memtable_bytes",
			Help: "Approximate memory usage of the active memtable's arena.",
		},
	)
	r.MemtableEntries = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "lsmdb_memtable_entries",
			Help: "Number of versioned entries in the active memtable.",
		},
	)
	r.CacheHitsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsmdb_cache_lookups_total",
			Help: "Cache lookups, by hit or miss.",
		},
		[]string{"result"},
	)
	r.CacheChargeBytes = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "lsmdb_cache_charge_bytes",
			Help: "Total charge of entries currently held by the cache.",
		},
	)

	return r
}

// PrometheusRegistry returns the underlying registry, for mounting a
// promhttp.Handler.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func (r *Registry) IncCounter(name string, labels map[string]string, delta float64) {
	switch name {
	case "writes_total":
		r.WritesTotal.WithLabelValues(labels["outcome"]).Add(delta)
	case "cache_lookups_total":
		r.CacheHitsTotal.WithLabelValues(labels["result"]).Add(delta)
	}
}

func (r *Registry) SetGauge(name string, labels map[string]string, value float64) {
	switch name {
	case "memtable_bytes":
		r.MemtableBytes.Set(value)
	case "memtable_entries":
		r.MemtableEntries.Set(value)
	case "cache_charge_bytes":
		r.CacheChargeBytes.Set(value)
	}
}

func (r *Registry) ObserveHistogram(name string, labels map[string]string, value float64) {
	if name == "write_batch_bytes" {
		r.WriteBatchBytes.Observe(value)
	}
}

// RecordWrite records one write batch with the given outcome (e.g.
// "applied" or "rejected") and encoded size.
func (r *Registry) RecordWrite(outcome string, encodedBytes int, _ time.Duration) {
	r.WritesTotal.WithLabelValues(outcome).Inc()
	r.WriteBatchBytes.Observe(float64(encodedBytes))
}

// RecordCacheLookup records a cache hit or miss.
func (r *Registry) RecordCacheLookup(hit bool) {
	if hit {
		r.CacheHitsTotal.WithLabelValues("hit").Inc()
	} else {
		r.CacheHitsTotal.WithLabelValues("miss").Inc()
	}
}
