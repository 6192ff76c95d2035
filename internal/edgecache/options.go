package edgecache

import "time"

// DefaultEdgeTTL 未显式配置时的边缘缓存有效期。
const DefaultEdgeTTL = 2 * 24 * time.Hour

// Options 是单次调用的缓存策略，调用方可静态复用同一份，也可按请求计算。
type Options struct {
	// Store 显式指定存储实例，优先级最高。
	Store Store
	// StoreName 通过 Opener 打开命名存储，Store 为空时生效。
	StoreName string

	// Key 直接指定缓存键；KeyFunc 接收默认键并返回改写结果。两者互斥，Key 优先。
	Key     *Key
	KeyFunc func(Key) Key

	// ETag 首次写入时的实体标识种子，响应自带 Etag 时忽略。
	ETag string
	// DefaultETag 控制生成校验器的级别，默认 strong。
	DefaultETag Validator

	// BrowserTTL 为 nil 时不向客户端下发 Cache-Control。
	BrowserTTL *time.Duration
	// EdgeTTL 为 nil 时使用 DefaultEdgeTTL；取值不做范围校验，原样写入 max-age。
	EdgeTTL *time.Duration
	// DisableEdgeCache 等价于将 EdgeTTL 置空：彻底跳过边缘缓存读写。
	DisableEdgeCache bool
	// BypassCache 逃生开关，开发环境下每次请求都执行回退生产者。
	BypassCache bool
}

// CacheOptions makes Options satisfy OptionSource.
func (o Options) CacheOptions(*Request) Options {
	return o
}

// OptionsFunc adapts a per-request function to the OptionSource interface.
type OptionsFunc func(*Request) Options

// CacheOptions makes OptionsFunc satisfy OptionSource.
func (f OptionsFunc) CacheOptions(req *Request) Options {
	return f(req)
}

// OptionSource 允许调用方以静态对象或请求函数两种形态提供缓存策略。
type OptionSource interface {
	CacheOptions(*Request) Options
}

// Resolve 将调用方提供的策略落为具体 Options 并填充默认值。
func Resolve(source OptionSource, req *Request) Options {
	var opts Options
	if source != nil {
		opts = source.CacheOptions(req)
	}
	if opts.DefaultETag == "" {
		opts.DefaultETag = ValidatorStrong
	}
	if opts.EdgeTTL == nil && !opts.DisableEdgeCache {
		ttl := DefaultEdgeTTL
		opts.EdgeTTL = &ttl
	}
	return opts
}
