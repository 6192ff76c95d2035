package edgecache

import (
	"net/url"
	"testing"
	"time"
)

func TestResolveAppliesDefaults(t *testing.T) {
	req := &Request{Method: "GET", URL: mustParseURL(t, "https://example.com/")}

	opts := Resolve(Options{}, req)
	if opts.DefaultETag != ValidatorStrong {
		t.Fatalf("DefaultETag 默认应为 strong, got %q", opts.DefaultETag)
	}
	if opts.BrowserTTL != nil {
		t.Fatalf("BrowserTTL 默认应为空")
	}
	if opts.EdgeTTL == nil || *opts.EdgeTTL != DefaultEdgeTTL {
		t.Fatalf("EdgeTTL 默认应为 %v, got %v", DefaultEdgeTTL, opts.EdgeTTL)
	}
	if opts.BypassCache {
		t.Fatalf("BypassCache 默认应为 false")
	}
}

func TestResolveKeepsExplicitValues(t *testing.T) {
	req := &Request{Method: "GET", URL: mustParseURL(t, "https://example.com/")}
	negative := -30 * time.Second

	opts := Resolve(Options{EdgeTTL: &negative, DefaultETag: ValidatorWeak}, req)
	if *opts.EdgeTTL != negative {
		t.Fatalf("负 TTL 应原样透传, got %v", *opts.EdgeTTL)
	}
	if opts.DefaultETag != ValidatorWeak {
		t.Fatalf("显式 DefaultETag 不应被覆盖")
	}
}

func TestResolveDisabledEdgeCacheSkipsDefaultTTL(t *testing.T) {
	req := &Request{Method: "GET", URL: mustParseURL(t, "https://example.com/")}

	opts := Resolve(Options{DisableEdgeCache: true}, req)
	if opts.EdgeTTL != nil {
		t.Fatalf("禁用边缘缓存时不应填充默认 TTL")
	}
}

func TestResolveFromFunc(t *testing.T) {
	req := &Request{Method: "GET", URL: mustParseURL(t, "https://example.com/dev")}

	source := OptionsFunc(func(r *Request) Options {
		return Options{BypassCache: r.URL.Path == "/dev"}
	})
	opts := Resolve(source, req)
	if !opts.BypassCache {
		t.Fatalf("按请求计算的选项未生效")
	}
}

func TestResolveNilSource(t *testing.T) {
	req := &Request{Method: "GET", URL: mustParseURL(t, "https://example.com/")}
	opts := Resolve(nil, req)
	if opts.EdgeTTL == nil {
		t.Fatalf("nil source 也应落到默认值")
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return parsed
}
