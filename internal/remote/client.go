package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kumardeo/blogger-pwa/internal/assets"
	"github.com/kumardeo/blogger-pwa/internal/edgecache"
)

// DefaultOrigin 原始内容镜像的默认源站。
const DefaultOrigin = "https://raw.githubusercontent.com"

// DefaultBranch 未指定分支时使用的默认值。
const DefaultBranch = "main"

// cacheKeyPrefix 远程资产缓存键的命名空间，避免与静态解析器冲突。
const cacheKeyPrefix = "/__cached_git_assets__"

// defaultContentType 无法从文件名推断类型时的兜底值。
const defaultContentType = "application/octet-stream"

// Asset 单次源站抓取的结果。
type Asset struct {
	Input       string
	Filename    string
	Extension   string
	MimeType    string
	ContentType string
	Body        []byte
}

// ClientOptions 构造 Client 所需的全部参数，零值字段取默认。
type ClientOptions struct {
	// HTTPClient 出站请求使用的客户端，空时用 http.DefaultClient。
	HTTPClient *http.Client
	// Cache 缓存门面，Fetch 必须有它才能工作。
	Cache *edgecache.Cache
	// Origin 源站地址，空时为 DefaultOrigin。
	Origin string
	// Repository 形如 owner/name。
	Repository string
	// Branch 空时为 DefaultBranch。
	Branch string
	// Token 可选的 Bearer 凭证。
	Token string
	// BuildHash 用于隔离不同构建版本的缓存键与 ETag 种子。
	BuildHash string
}

// Client 远程资产解析器：按路径抓取源站文件并经缓存门面对外提供 Fetch。
type Client struct {
	httpClient *http.Client
	cache      *edgecache.Cache
	origin     string
	repository string
	branch     string
	token      string
	buildHash  string
}

// NewClient 构建远程资产解析器。
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	origin := strings.TrimRight(opts.Origin, "/")
	if origin == "" {
		origin = DefaultOrigin
	}
	branch := opts.Branch
	if branch == "" {
		branch = DefaultBranch
	}
	return &Client{
		httpClient: httpClient,
		cache:      opts.Cache,
		origin:     origin,
		repository: opts.Repository,
		branch:     branch,
		token:      opts.Token,
		buildHash:  opts.BuildHash,
	}
}

// Root 返回源站根地址 origin/repository/branch。
func (c *Client) Root() string {
	return fmt.Sprintf("%s/%s/%s", c.origin, c.repository, c.branch)
}

// Get 抓取单个远程资产，源站返回非 2xx 时视为不存在，返回 (nil, nil)。
func (c *Client) Get(ctx context.Context, path string) (*Asset, error) {
	target := c.Root() + "/" + strings.TrimLeft(path, "/")
	if strings.HasSuffix(target, "/") {
		target += "index.html"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build request for %q: %w", target, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: fetch %q: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read %q: %w", target, err)
	}

	filename := baseName(target)
	mimeType, contentType := assets.ContentType(filename, defaultContentType)
	return &Asset{
		Input:       path,
		Filename:    filename,
		Extension:   assets.Extension(filename),
		MimeType:    mimeType,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// FetchOptions 控制单次 Fetch 的行为。
type FetchOptions struct {
	// ToAsset 将请求 URL 改写为源站路径，默认使用 URL.Path。
	ToAsset func(*url.URL, *edgecache.Request) string
	// Options 传递给缓存门面的策略；键与 ETag 种子缺省时由构建哈希填充。
	Options edgecache.Options
}

// Fetch 抓取远程资产并经缓存门面返回响应。
// 缓存键落在本解析器的命名空间内并带构建哈希前缀，
// ETag 种子区分构建版本。源站未命中时返回 (nil, nil)。
func (c *Client) Fetch(ctx context.Context, req *edgecache.Request, opts FetchOptions) (*edgecache.Response, error) {
	path := req.URL.Path
	if opts.ToAsset != nil {
		path = opts.ToAsset(req.URL, req)
	}

	cacheOpts := opts.Options
	if cacheOpts.Key == nil {
		defaultKey := c.defaultKey(req)
		if cacheOpts.KeyFunc != nil {
			rewritten := cacheOpts.KeyFunc(defaultKey)
			cacheOpts.Key = &rewritten
			cacheOpts.KeyFunc = nil
		} else {
			cacheOpts.Key = &defaultKey
		}
	}
	if cacheOpts.ETag == "" && c.buildHash != "" {
		cacheOpts.ETag = fmt.Sprintf("build_%s_%s", c.buildHash, req.URL.Path)
	}

	producer := func(ctx context.Context, _ *edgecache.Request) (*edgecache.Response, error) {
		asset, err := c.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			return nil, nil
		}
		header := http.Header{}
		header.Set("Content-Type", asset.ContentType)
		return &edgecache.Response{
			StatusCode: http.StatusOK,
			Header:     header,
			Body:       asset.Body,
		}, nil
	}

	return c.cache.Serve(ctx, req, producer, cacheOpts)
}

// defaultKey 以请求路径构造命名空间化的缓存键，构建哈希进一步隔离版本。
func (c *Client) defaultKey(req *edgecache.Request) edgecache.Key {
	keyURL := *req.URL
	keyURL.Path = cacheKeyPrefix + req.URL.Path
	if c.buildHash != "" {
		keyURL.Path = fmt.Sprintf("/__cache_build_%s__%s", c.buildHash, keyURL.Path)
	}
	return edgecache.DefaultKey(req).WithURL(&keyURL)
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
