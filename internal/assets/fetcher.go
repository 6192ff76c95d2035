package assets

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/kumardeo/blogger-pwa/internal/edgecache"
)

// defaultMimeType 与清单解析保持一致的兜底类型。
const defaultMimeType = "text/plain"

// cacheKeyPrefix 静态资产缓存键的命名空间，避免与其他解析器冲突。
const cacheKeyPrefix = "/__cached_assets_fetcher__/"

// Fetcher 把清单 + 键值命名空间组合成静态资产解析器，
// 经由缓存门面对外提供 Serve。
type Fetcher struct {
	manifest Manifest
	kv       KV
	cache    *edgecache.Cache
}

// NewFetcher 构建静态资产解析器，manifest 在此之后视为只读。
func NewFetcher(manifest Manifest, kv KV, cache *edgecache.Cache) *Fetcher {
	if manifest == nil {
		manifest = Manifest{}
	}
	return &Fetcher{
		manifest: manifest,
		kv:       kv,
		cache:    cache,
	}
}

// Resolve 将路径解析为资产描述，未命中返回 nil。
func (f *Fetcher) Resolve(input string) *Descriptor {
	return f.manifest.Resolve(input, defaultMimeType)
}

// Has 报告路径是否能解析到清单条目。
func (f *Fetcher) Has(input string) bool {
	return f.Resolve(input) != nil
}

// Bytes 解析路径并读取对应的资产字节，资产不存在时返回 (nil, nil, nil)。
func (f *Fetcher) Bytes(ctx context.Context, input string) (*Descriptor, []byte, error) {
	desc := f.Resolve(input)
	if desc == nil {
		return nil, nil, nil
	}
	data, err := f.kv.Get(ctx, desc.Key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return desc, data, nil
}

// ServeOptions 控制单次 Serve 的行为。
type ServeOptions struct {
	// ToAsset 将请求 URL 改写为资产路径，默认使用 URL.Path。
	ToAsset func(*url.URL, *edgecache.Request) string
	// Options 传递给缓存门面的策略；键与 ETag 种子缺省时由解析结果填充。
	Options edgecache.Options
}

// Serve 解析请求路径并经缓存门面返回响应。
// 存储键充当 ETag 种子；缓存键固定落在本解析器的命名空间内。
// 清单无法解析时返回 (nil, nil)，由 HTTP 入口转换为 404。
func (f *Fetcher) Serve(ctx context.Context, req *edgecache.Request, opts ServeOptions) (*edgecache.Response, error) {
	path := req.URL.Path
	if opts.ToAsset != nil {
		path = opts.ToAsset(req.URL, req)
	}

	desc := f.Resolve(path)
	if desc == nil {
		return nil, nil
	}

	cacheOpts := opts.Options
	if cacheOpts.Key == nil {
		defaultKey := f.defaultKey(req, desc)
		if cacheOpts.KeyFunc != nil {
			rewritten := cacheOpts.KeyFunc(defaultKey)
			cacheOpts.Key = &rewritten
			cacheOpts.KeyFunc = nil
		} else {
			cacheOpts.Key = &defaultKey
		}
	}
	if cacheOpts.ETag == "" {
		cacheOpts.ETag = desc.Key
	}

	producer := func(ctx context.Context, _ *edgecache.Request) (*edgecache.Response, error) {
		data, err := f.kv.Get(ctx, desc.Key)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return nil, nil
			}
			return nil, err
		}
		header := http.Header{}
		header.Set("Content-Type", desc.ContentType)
		return &edgecache.Response{
			StatusCode: http.StatusOK,
			Header:     header,
			Body:       data,
		}, nil
	}

	return f.cache.Serve(ctx, req, producer, cacheOpts)
}

// defaultKey 以存储键（而非请求路径）构造缓存键，
// 同一内容在不同逻辑路径下共享同一条目。
func (f *Fetcher) defaultKey(req *edgecache.Request, desc *Descriptor) edgecache.Key {
	keyURL := *req.URL
	keyURL.Path = cacheKeyPrefix + desc.Key
	return edgecache.DefaultKey(req).WithURL(&keyURL)
}
