package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"lsmdb/pkg/metrics"
)

func newTestServer() (*Server, *Engine) {
	e := NewEngine(1<<20, metrics.NewRegistry())
	return NewServer(e, "0"), e
}

func doRequest(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s.router(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPutGetDeleteRoundTrip(t *testing.T) {
	s, _ := newTestServer()
	r := s.router()

	form := url.Values{"key": {"k"}, "value": {"v1"}}
	rec := doRequest(t, r, http.MethodPut, "/kv", form.Encode())
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, r, http.MethodGet, "/kv?key=k", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Value != "v1" {
		t.Fatalf("value = %q, want v1", resp.Value)
	}

	rec = doRequest(t, r, http.MethodDelete, "/kv?key=k", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}

	rec = doRequest(t, r, http.MethodGet, "/kv?key=k", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want 404", rec.Code)
	}
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s.router(), http.MethodGet, "/kv?key=absent", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStatsReflectsAppliedWrite(t *testing.T) {
	s, e := newTestServer()
	before := e.Stats().MemtableBytes

	form := url.Values{"key": {"k"}, "value": {"a-reasonably-long-value"}}
	doRequest(t, s.router(), http.MethodPut, "/kv", form.Encode())

	after := e.Stats().MemtableBytes
	if after <= before {
		t.Fatalf("MemtableBytes did not grow: before=%d after=%d", before, after)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	s, _ := newTestServer()
	rec := doRequest(t, s.router(), http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
}

func TestGetPopulatesCacheOnMiss(t *testing.T) {
	s, e := newTestServer()
	r := s.router()

	form := url.Values{"key": {"k"}, "value": {"v1"}}
	doRequest(t, r, http.MethodPut, "/kv", form.Encode())

	if e.Stats().CacheChargeBytes != 0 {
		t.Fatal("cache should start empty for this key")
	}
	doRequest(t, r, http.MethodGet, "/kv?key=k", "")
	if e.Stats().CacheChargeBytes == 0 {
		t.Fatal("Get should have populated the cache")
	}
}
