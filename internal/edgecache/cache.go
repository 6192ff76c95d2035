package edgecache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Producer 是缓存未命中时的回退生产者。返回 (nil, nil) 表示资源不存在，
// 由调用方负责转换为 404；返回错误则原样上抛，缓存层不做重试。
type Producer func(ctx context.Context, req *Request) (*Response, error)

// Deferrer 承接不阻塞响应路径的后台工作，对应运行时的 run-after-response 机制。
type Deferrer interface {
	Defer(fn func(context.Context))
}

// Cache orchestrates the read-through flow: store lookup, fallback
// production, background write, and conditional-request post-processing.
type Cache struct {
	store  Store
	opener Opener
	tasks  Deferrer
	logger *logrus.Logger
}

// New 构建缓存门面。opener 可为空（此时命名存储退回默认存储）；
// tasks 为空时写入在当前调用内同步执行，主要方便测试断言。
func New(store Store, opener Opener, tasks Deferrer, logger *logrus.Logger) *Cache {
	return &Cache{
		store:  store,
		opener: opener,
		tasks:  tasks,
		logger: logger,
	}
}

// Serve 执行一次完整的 cache-through 调用：
// 命中则基于只读条目重建响应，未命中则执行回退生产者并按策略异步写入，
// 最后统一应用 304 条件语义与浏览器 Cache-Control。
// 仅接受 GET/HEAD，其余方法属调用方误用，直接返回 ErrUnsupportedMethod。
func (c *Cache) Serve(ctx context.Context, req *Request, fallback Producer, source OptionSource) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method != http.MethodGet && method != http.MethodHead {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	opts := Resolve(source, req)
	shouldEdgeCache := !(opts.BypassCache || opts.DisableEdgeCache || method == http.MethodHead)

	key := DefaultKey(req)
	if opts.Key != nil {
		key = *opts.Key
	} else if opts.KeyFunc != nil {
		key = opts.KeyFunc(key)
	}

	store, storeLabel := c.selectStore(opts)

	var resp *Response
	if shouldEdgeCache {
		stored, err := store.Match(ctx, key)
		switch {
		case err == nil:
			cacheHits.WithLabelValues(storeLabel).Inc()
			resp = rebuildStored(stored)
		case errors.Is(err, ErrNotFound):
			cacheMisses.Inc()
		default:
			// 存储故障按未命中处理，正确性由回退生产者兜底。
			cacheMisses.Inc()
			if c.logger != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"action": "cache_match",
					"key":    key.String(),
				}).Warn("cache_match_failed")
			}
		}
	}

	if resp == nil {
		produced, err := fallback(ctx, req)
		if err != nil {
			return nil, err
		}
		if produced == nil {
			return nil, nil
		}
		resp = produced

		// 仅 [200,400) 可缓存，其余响应原样透传且不做任何头部改写。
		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			return resp, nil
		}
		if resp.Header == nil {
			resp.Header = http.Header{}
		}

		if shouldEdgeCache {
			edgeTTL := *opts.EdgeTTL
			resp.Header.Set("Accept-Ranges", "bytes")
			resp.Header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
			if resp.Header.Get("Etag") == "" && opts.ETag != "" {
				resp.Header.Set("Etag", FormatETag(opts.ETag, opts.DefaultETag))
			}
			resp.Header.Set("Cache-Control", "max-age="+formatMaxAge(edgeTTL))
			// 快照在设置 MISS 前固化，存储条目不携带缓存状态头。
			c.deferPut(store, key, resp.Clone(), edgeTTL)
			resp.Header.Set("Cf-Cache-Status", "MISS")
		}
	}

	if resp.StatusCode == http.StatusNotModified {
		if etag := resp.Header.Get("Etag"); etag != "" {
			etag = FormatETag(etag, opts.DefaultETag)
			ifNoneMatch := key.Header.Get("If-None-Match")
			// 仅“本次 MISS 中新产生的 304 且校验器与客户端一致”标记 EXPIRED，
			// 其余一律 REVALIDATED。该判定刻意保持原始行为，不做推断改进。
			if ifNoneMatch != "" && ifNoneMatch == etag && resp.Header.Get("Cf-Cache-Status") == "MISS" {
				resp.Header.Set("Cf-Cache-Status", "EXPIRED")
			} else {
				resp.Header.Set("Cf-Cache-Status", "REVALIDATED")
			}
			resp.Header.Set("Etag", FormatETag(etag, ValidatorWeak))
			revalidations.Inc()
		}
	}

	// 边缘 TTL 写入的 Cache-Control 不允许泄漏给客户端。
	if opts.BrowserTTL != nil {
		resp.Header.Set("Cache-Control", "max-age="+formatMaxAge(*opts.BrowserTTL))
	} else {
		resp.Header.Del("Cache-Control")
	}

	return resp, nil
}

// rebuildStored 基于只读的存储条目重建响应，绝不改写条目本身。
func rebuildStored(stored *Response) *Response {
	// 重定向条目重建为无正文响应，保留状态与头部。
	if stored.StatusCode > 300 && stored.StatusCode < 400 {
		return &Response{
			StatusCode: stored.StatusCode,
			Header:     cloneHeader(stored.Header),
		}
	}

	header := cloneHeader(stored.Header)
	header.Set("Cf-Cache-Status", "HIT")

	status := stored.StatusCode
	if status == 0 {
		if header.Get("Content-Range") != "" {
			status = http.StatusPartialContent
		} else {
			status = http.StatusOK
		}
	}

	return &Response{
		StatusCode: status,
		Header:     header,
		Body:       stored.Body,
	}
}

func (c *Cache) selectStore(opts Options) (Store, string) {
	if opts.Store != nil {
		return opts.Store, "explicit"
	}
	if opts.StoreName != "" && c.opener != nil {
		return c.opener.Open(opts.StoreName), opts.StoreName
	}
	return c.store, "default"
}

// deferPut 把存储写入移出响应关键路径，失败只记录日志，下一次未命中自愈。
func (c *Cache) deferPut(store Store, key Key, resp *Response, ttl time.Duration) {
	put := func(ctx context.Context) {
		if err := store.Put(ctx, key, resp, ttl); err != nil {
			if c.logger != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"action": "cache_put",
					"key":    key.String(),
				}).Warn("cache_put_failed")
			}
		}
	}
	if c.tasks == nil {
		put(context.Background())
		return
	}
	c.tasks.Defer(put)
}

// formatMaxAge 将 TTL 换算为整数秒，负值原样透传，范围校验是调用方的责任。
func formatMaxAge(ttl time.Duration) string {
	return strconv.FormatInt(int64(ttl/time.Second), 10)
}
