package edgecache

import (
	"context"
	"errors"
	"time"
)

// Store 抽象外部的分布式响应缓存。条目生命周期完全由存储方管理，
// 本层只做单请求范围内的读写，不追踪条目状态。
type Store interface {
	// Match 按键查找已存储的响应。不存在时返回 ErrNotFound。
	// 返回的 Response 可能被并发读取方共享，调用方不得修改。
	Match(ctx context.Context, key Key) (*Response, error)

	// Put 以 ttl 写入响应快照，过期淘汰由存储方执行。
	Put(ctx context.Context, key Key, resp *Response, ttl time.Duration) error
}

// Opener 按名称打开隔离的命名存储，对应 Options.StoreName。
type Opener interface {
	Open(name string) Store
}

// ErrNotFound 表示缓存未命中。
var ErrNotFound = errors.New("cache entry not found")

// ErrUnsupportedMethod 表示调用方以不可缓存的 HTTP 方法进入缓存层，属使用错误。
var ErrUnsupportedMethod = errors.New("request method cannot be cached")
