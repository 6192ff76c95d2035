package edgecache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestServeRejectsUnsupportedMethod(t *testing.T) {
	c := newTestCache(newFakeStore())
	req := newTestRequest(t, http.MethodDelete, "https://example.com/app.js", nil)

	_, err := c.Serve(context.Background(), req, staticProducer(okResponse("body")), Options{})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestServeMissThenHit(t *testing.T) {
	store := newFakeStore()
	c := newTestCache(store)
	ttl := 60 * time.Second
	opts := Options{EdgeTTL: &ttl, ETag: "asset-key-1"}
	producer := newCountingProducer(okResponse("hello world"))

	first, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/app.js", nil), producer.produce, opts)
	if err != nil {
		t.Fatalf("first serve error: %v", err)
	}
	if status := first.Header.Get("Cf-Cache-Status"); status != "MISS" {
		t.Fatalf("expected MISS on first request, got %q", status)
	}

	second, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/app.js", nil), producer.produce, opts)
	if err != nil {
		t.Fatalf("second serve error: %v", err)
	}
	if status := second.Header.Get("Cf-Cache-Status"); status != "HIT" {
		t.Fatalf("expected HIT on second request, got %q", status)
	}
	if string(second.Body) != string(first.Body) {
		t.Fatalf("hit body mismatch: %q vs %q", second.Body, first.Body)
	}
	if producer.calls() != 1 {
		t.Fatalf("producer should run once, ran %d times", producer.calls())
	}
}

func TestServeStoredEntryShape(t *testing.T) {
	store := newFakeStore()
	c := newTestCache(store)
	ttl := 90 * time.Second
	opts := Options{EdgeTTL: &ttl, ETag: "storage-key-9"}

	if _, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/logo.png", nil), staticProducer(okResponse("png-bytes")), opts); err != nil {
		t.Fatalf("serve error: %v", err)
	}

	stored := store.entry(t, "GET https://example.com/logo.png")
	if stored.Header.Get("Cf-Cache-Status") != "" {
		t.Fatalf("stored entry must not carry a cache status header")
	}
	if got := stored.Header.Get("Cache-Control"); got != "max-age=90" {
		t.Fatalf("stored Cache-Control = %q", got)
	}
	if got := stored.Header.Get("Etag"); got != `"storage-key-9"` {
		t.Fatalf("stored Etag = %q, want strong validator", got)
	}
	if got := stored.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("stored Accept-Ranges = %q", got)
	}
	if store.ttl(t, "GET https://example.com/logo.png") != ttl {
		t.Fatalf("stored ttl mismatch")
	}
}

func TestServeEdgeCacheControlDoesNotLeak(t *testing.T) {
	c := newTestCache(newFakeStore())

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/a", nil), staticProducer(okResponse("x")), Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if got := resp.Header.Get("Cache-Control"); got != "" {
		t.Fatalf("edge Cache-Control leaked to client: %q", got)
	}
}

func TestServeBrowserTTLOverridesCacheControl(t *testing.T) {
	c := newTestCache(newFakeStore())
	browser := 300 * time.Second

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/a", nil), staticProducer(okResponse("x")), Options{BrowserTTL: &browser})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if got := resp.Header.Get("Cache-Control"); got != "max-age=300" {
		t.Fatalf("browser Cache-Control = %q", got)
	}
}

func TestServeCacheabilityBoundary(t *testing.T) {
	testCases := []struct {
		status int
		cached bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{399, true},
		{400, false},
	}

	for _, tc := range testCases {
		store := newFakeStore()
		c := newTestCache(store)
		resp := &Response{StatusCode: tc.status, Header: http.Header{}, Body: []byte("b")}

		got, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/s", nil), staticProducer(resp), Options{})
		if err != nil {
			t.Fatalf("status %d: serve error: %v", tc.status, err)
		}
		if stored := store.size(); (stored > 0) != tc.cached {
			t.Fatalf("status %d: stored=%d, cacheable=%v", tc.status, stored, tc.cached)
		}
		if !tc.cached {
			if got != resp {
				t.Fatalf("status %d: uncacheable response must pass through unmodified", tc.status)
			}
			if got.Header.Get("Cf-Cache-Status") != "" {
				t.Fatalf("status %d: uncacheable response must not carry cache status", tc.status)
			}
		}
	}
}

func TestServeBypassAlwaysRunsProducer(t *testing.T) {
	store := newFakeStore()
	c := newTestCache(store)
	producer := newCountingProducer(okResponse("fresh"))
	opts := Options{BypassCache: true}

	for i := 0; i < 3; i++ {
		resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/dev.js", nil), producer.produce, opts)
		if err != nil {
			t.Fatalf("serve %d error: %v", i, err)
		}
		if status := resp.Header.Get("Cf-Cache-Status"); status != "" {
			t.Fatalf("bypass must never set Cf-Cache-Status, got %q", status)
		}
	}
	if producer.calls() != 3 {
		t.Fatalf("producer ran %d times, want 3", producer.calls())
	}
	if store.size() != 0 {
		t.Fatalf("bypass must not write the store")
	}
}

func TestServeHeadSkipsEdgeCache(t *testing.T) {
	store := newFakeStore()
	c := newTestCache(store)
	producer := newCountingProducer(okResponse("head"))

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodHead, "https://example.com/h", nil), producer.produce, Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected a response for HEAD")
	}
	if store.size() != 0 {
		t.Fatalf("HEAD requests must not populate the store")
	}
	if status := resp.Header.Get("Cf-Cache-Status"); status != "" {
		t.Fatalf("HEAD must not be cache-status tagged, got %q", status)
	}
}

func TestServeNilProducerResult(t *testing.T) {
	c := newTestCache(newFakeStore())

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/missing", nil), staticProducer(nil), Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil response for absent asset, got %+v", resp)
	}
}

func TestServeProducerErrorPropagates(t *testing.T) {
	c := newTestCache(newFakeStore())
	boom := errors.New("origin exploded")

	_, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/x", nil), func(context.Context, *Request) (*Response, error) {
		return nil, boom
	}, Options{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected producer error to propagate, got %v", err)
	}
}

func TestServeMatchFailureFallsBackToProducer(t *testing.T) {
	store := newFakeStore()
	store.matchErr = errors.New("store unavailable")
	c := newTestCache(store)
	producer := newCountingProducer(okResponse("recovered"))

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/r", nil), producer.produce, Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if producer.calls() != 1 {
		t.Fatalf("producer should cover store failures")
	}
	if string(resp.Body) != "recovered" {
		t.Fatalf("unexpected body %q", resp.Body)
	}
}

func TestServeRedirectHitRebuiltWithoutBody(t *testing.T) {
	store := newFakeStore()
	header := http.Header{}
	header.Set("Location", "https://example.com/moved")
	store.seed("GET https://example.com/old", &Response{StatusCode: 301, Header: header, Body: []byte("stale body")})
	c := newTestCache(store)

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/old", nil), staticProducer(okResponse("x")), Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if resp.StatusCode != 301 {
		t.Fatalf("redirect status lost: %d", resp.StatusCode)
	}
	if len(resp.Body) != 0 {
		t.Fatalf("redirect reconstruction must drop the body")
	}
	if resp.Header.Get("Location") != "https://example.com/moved" {
		t.Fatalf("redirect headers must be preserved")
	}
}

func TestServeHitInfersStatusFromContentRange(t *testing.T) {
	store := newFakeStore()
	header := http.Header{}
	header.Set("Content-Range", "bytes 0-99/200")
	store.seed("GET https://example.com/partial", &Response{Header: header, Body: []byte("chunk")})
	c := newTestCache(store)

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/partial", nil), staticProducer(nil), Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("expected 206 inference, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Cf-Cache-Status") != "HIT" {
		t.Fatalf("expected HIT status")
	}
}

func TestServeHitDoesNotMutateStoredEntry(t *testing.T) {
	store := newFakeStore()
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	stored := &Response{StatusCode: 200, Header: header, Body: []byte("page")}
	store.seed("GET https://example.com/page", stored)
	c := newTestCache(store)

	if _, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/page", nil), staticProducer(nil), Options{}); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if stored.Header.Get("Cf-Cache-Status") != "" {
		t.Fatalf("stored entry was mutated in place")
	}
}

func TestServeFresh304MarkedExpired(t *testing.T) {
	c := newTestCache(newFakeStore())
	header := http.Header{}
	header.Set("Etag", `"v1"`)
	resp304 := &Response{StatusCode: http.StatusNotModified, Header: header}
	reqHeader := http.Header{}
	reqHeader.Set("If-None-Match", `"v1"`)

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/doc", reqHeader), staticProducer(resp304), Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if status := resp.Header.Get("Cf-Cache-Status"); status != "EXPIRED" {
		t.Fatalf("fresh matching 304 must be EXPIRED, got %q", status)
	}
	if etag := resp.Header.Get("Etag"); etag != `W/"v1"` {
		t.Fatalf("304 must re-emit a weak validator, got %q", etag)
	}
}

func TestServe304WithoutMatchMarkedRevalidated(t *testing.T) {
	c := newTestCache(newFakeStore())
	header := http.Header{}
	header.Set("Etag", `"v1"`)
	resp304 := &Response{StatusCode: http.StatusNotModified, Header: header}

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/doc", nil), staticProducer(resp304), Options{})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if status := resp.Header.Get("Cf-Cache-Status"); status != "REVALIDATED" {
		t.Fatalf("non-matching 304 must be REVALIDATED, got %q", status)
	}
}

// A producer can hand back a 304 even when edge caching is disabled; the
// conditional post-processing still applies against whatever it returned.
func TestServe304WithEdgeCacheDisabled(t *testing.T) {
	c := newTestCache(newFakeStore())
	header := http.Header{}
	header.Set("Etag", `"v2"`)
	resp304 := &Response{StatusCode: http.StatusNotModified, Header: header}
	reqHeader := http.Header{}
	reqHeader.Set("If-None-Match", `"v2"`)

	resp, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/doc", reqHeader), staticProducer(resp304), Options{DisableEdgeCache: true})
	if err != nil {
		t.Fatalf("serve error: %v", err)
	}
	// No MISS marker without edge caching, so the literal rule lands on REVALIDATED.
	if status := resp.Header.Get("Cf-Cache-Status"); status != "REVALIDATED" {
		t.Fatalf("expected REVALIDATED, got %q", status)
	}
}

func TestServeExistingETagNotOverwritten(t *testing.T) {
	store := newFakeStore()
	c := newTestCache(store)
	header := http.Header{}
	header.Set("Etag", `"from-producer"`)
	resp := &Response{StatusCode: 200, Header: header, Body: []byte("b")}

	if _, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/e", nil), staticProducer(resp), Options{ETag: "seed"}); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	stored := store.entry(t, "GET https://example.com/e")
	if got := stored.Header.Get("Etag"); got != `"from-producer"` {
		t.Fatalf("producer etag overwritten: %q", got)
	}
}

func TestServeKeyFuncReceivesDefaultKey(t *testing.T) {
	store := newFakeStore()
	c := newTestCache(store)
	opts := Options{
		KeyFunc: func(key Key) Key {
			key.URL = "https://example.com/__build_abc__/app.js"
			return key
		},
	}

	if _, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/app.js", nil), staticProducer(okResponse("x")), opts); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	store.entry(t, "GET https://example.com/__build_abc__/app.js")
}

func TestServeNamedStoreViaOpener(t *testing.T) {
	memory := NewMemoryStore()
	logger := discardLogger()
	c := New(memory, memory, nil, logger)

	if _, err := c.Serve(context.Background(), newTestRequest(t, http.MethodGet, "https://example.com/n", nil), staticProducer(okResponse("x")), Options{StoreName: "build-1"}); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	named := memory.Open("build-1")
	if _, err := named.Match(context.Background(), Key{Method: "GET", URL: "https://example.com/n"}); err != nil {
		t.Fatalf("entry missing from named store: %v", err)
	}
	if _, err := memory.Match(context.Background(), Key{Method: "GET", URL: "https://example.com/n"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("entry must not land in the default namespace, got %v", err)
	}
}

// --- helpers ---

type fakeStore struct {
	mu       sync.Mutex
	entries  map[string]*Response
	ttls     map[string]time.Duration
	matchErr error
	putErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: map[string]*Response{},
		ttls:    map[string]time.Duration{},
	}
}

func (s *fakeStore) Match(ctx context.Context, key Key) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchErr != nil {
		return nil, s.matchErr
	}
	resp, ok := s.entries[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return resp, nil
}

func (s *fakeStore) Put(ctx context.Context, key Key, resp *Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[key.String()] = resp
	s.ttls[key.String()] = ttl
	return nil
}

func (s *fakeStore) seed(key string, resp *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = resp
}

func (s *fakeStore) entry(t *testing.T, key string) *Response {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.entries[key]
	if !ok {
		t.Fatalf("no stored entry for %q (have %d entries)", key, len(s.entries))
	}
	return resp
}

func (s *fakeStore) ttl(t *testing.T, key string) time.Duration {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

func (s *fakeStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type countingProducer struct {
	mu    sync.Mutex
	count int
	resp  *Response
}

func newCountingProducer(resp *Response) *countingProducer {
	return &countingProducer{resp: resp}
}

func (p *countingProducer) produce(ctx context.Context, req *Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	if p.resp == nil {
		return nil, nil
	}
	return p.resp.Clone(), nil
}

func (p *countingProducer) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func staticProducer(resp *Response) Producer {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if resp == nil {
			return nil, nil
		}
		return resp, nil
	}
}

func okResponse(body string) *Response {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	return &Response{StatusCode: http.StatusOK, Header: header, Body: []byte(body)}
}

func newTestRequest(t *testing.T, method, rawURL string, header http.Header) *Request {
	t.Helper()
	if header == nil {
		header = http.Header{}
	}
	return &Request{Method: method, URL: mustParseURL(t, rawURL), Header: header}
}

func newTestCache(store Store) *Cache {
	return New(store, nil, nil, discardLogger())
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
