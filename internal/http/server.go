// Package http exposes the write-path core over HTTP: a small
// introspection and smoke-test surface (put/get/delete against the active
// memtable, a Prometheus scrape endpoint, and memtable/cache stats), built
// on chi.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lsmdb/pkg/batch"
	"lsmdb/pkg/cache"
	"lsmdb/pkg/clock"
	"lsmdb/pkg/dbformat"
	"lsmdb/pkg/memtable"
	"lsmdb/pkg/metrics"
	"lsmdb/pkg/types"
)

const defaultShutdownTimeout = 5 * time.Second

// Engine is the write-path core this server fronts: a single active
// memtable, a sequence-number source, and a sharded cache of recent read
// results.
type Engine struct {
	sem   chan struct{} // 1-buffered: serializes Apply (the memtable's single writer) and Get's cache fill
	mt    *memtable.Memtable
	seq   *clock.AtomicClock
	cache *cache.Sharded
	mx    *metrics.Registry
}

// NewEngine builds an Engine with a fresh empty memtable, a sequence
// counter starting at 0 (the highest sequence number assigned so far, so
// the first record gets sequence 1), and a cache of the given capacity.
func NewEngine(cacheCapacityBytes int, mx *metrics.Registry) *Engine {
	mt := memtable.New(nil)
	mt.Ref()
	e := &Engine{
		sem:   make(chan struct{}, 1),
		mt:    mt,
		seq:   clock.NewAtomic(0),
		cache: cache.New(cacheCapacityBytes),
		mx:    mx,
	}
	e.sem <- struct{}{}
	return e
}

// Apply assigns the batch its base sequence number and inserts its
// records into the active memtable, invalidating any cached reads of the
// keys it touches.
func (e *Engine) Apply(b *batch.WriteBatch) error {
	<-e.sem
	defer func() { e.sem <- struct{}{} }()

	keys, err := batchKeys(b)
	if err != nil {
		e.mx.RecordWrite("rejected", b.ApproximateSize(), 0)
		return err
	}

	n := uint64(b.Count())
	base := e.seq.Add(n) - n + 1
	b.SetSequence(types.SequenceNumber(base))

	if err := batch.InsertInto(b, e.mt); err != nil {
		e.mx.RecordWrite("rejected", b.ApproximateSize(), 0)
		return err
	}
	for _, k := range keys {
		e.cache.Erase(k)
	}
	e.mx.RecordWrite("applied", b.ApproximateSize(), 0)
	e.mx.MemtableBytes.Set(float64(e.mt.ApproximateMemoryUsage()))
	return nil
}

// batchKeys collects every key a batch touches, for cache invalidation,
// without mutating any external state.
func batchKeys(b *batch.WriteBatch) ([][]byte, error) {
	var collector keyCollector
	if err := b.Iterate(&collector); err != nil {
		return nil, err
	}
	return collector.keys, nil
}

type keyCollector struct{ keys [][]byte }

func (c *keyCollector) Put(key, value []byte) { c.keys = append(c.keys, key) }
func (c *keyCollector) Delete(key []byte)      { c.keys = append(c.keys, key) }

// Get returns the value for key as of the most recent applied write,
// consulting the cache before the memtable and populating it on a miss.
func (e *Engine) Get(key []byte) ([]byte, bool) {
	if h := e.cache.Lookup(key); h != nil {
		defer e.cache.Release(h)
		e.mx.RecordCacheLookup(true)
		val, _ := h.Value().([]byte)
		return val, true
	}
	e.mx.RecordCacheLookup(false)

	// Hold the writer slot so an Apply cannot erase key from the cache
	// between this memtable read and the cache fill below.
	<-e.sem
	defer func() { e.sem <- struct{}{} }()

	lk := dbformat.NewLookupKey(key, types.MaxSequenceNumber)
	val, res := e.mt.Get(lk)
	if res != memtable.Found {
		return nil, false
	}

	cached := append([]byte(nil), val...)
	h := e.cache.Insert(key, cached, len(cached), nil)
	e.cache.Release(h)
	e.mx.CacheChargeBytes.Set(float64(e.cache.TotalCharge()))
	return val, true
}

// Stats summarizes the engine's current state for the introspection
// endpoint.
type Stats struct {
	MemtableBytes    uint64 `json:"memtable_bytes"`
	CacheChargeBytes int    `json:"cache_charge_bytes"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		MemtableBytes:    e.mt.ApproximateMemoryUsage(),
		CacheChargeBytes: e.cache.TotalCharge(),
	}
}

// Server fronts an Engine with an HTTP API.
type Server struct {
	engine     *Engine
	httpServer *http.Server
	addr       string
	URL        string
}

// NewServer builds a Server listening on port, backed by engine.
func NewServer(engine *Engine, port string) *Server {
	if port == "" {
		port = "8080"
	}
	return &Server{
		engine: engine,
		addr:   ":" + port,
		URL:    "http://localhost:" + port,
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestIDHeader)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.engine.mx.PrometheusRegistry(), promhttp.HandlerOpts{}))
	r.Get("/stats", s.handleStats)
	r.Put("/kv", s.handlePut)
	r.Get("/kv", s.handleGet)
	r.Delete("/kv", s.handleDelete)

	return r
}

// requestIDHeader stamps every response with a fresh request ID, using
// google/uuid rather than chi's own counter-based generator.
func requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.New().String())
		next.ServeHTTP(w, r)
	})
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	slog.Info("http server started", "addr", s.URL)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("error encoding response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("failed to parse form"))
		return
	}
	key, value := r.FormValue("key"), r.FormValue("value")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("missing key"))
		return
	}

	b := batch.New()
	b.Put([]byte(key), []byte(value))
	if err := s.engine.Apply(b); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("missing key"))
		return
	}
	value, found := s.engine.Get([]byte(key))
	if !found {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse("key not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, NewValueResponse(string(value)))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("missing key"))
		return
	}
	b := batch.New()
	b.Delete([]byte(key))
	if err := s.engine.Apply(b); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}
	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}
