package edgecache

import (
	"net/http"
	"net/url"
	"strings"
)

// Request 是传入缓存层的中立请求模型，由 HTTP 入口从运行时类型适配而来。
// 缓存核心只依赖该模型，不感知 Fiber/fasthttp 的具体实现。
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
}

// Response 是缓存层的中立响应模型。Body 为完整字节，写入存储前已缓冲。
// 从 Store 返回的 Response 视为只读共享对象，调整状态或头部前必须重建。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Clone 深拷贝头部并复用正文字节，用于在后台写入前固化响应快照。
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		StatusCode: r.StatusCode,
		Header:     cloneHeader(r.Header),
		Body:       r.Body,
	}
}

// Key 唯一定位一个缓存条目。Header 保留原始请求头，
// 304 判定需要读取其中的 If-None-Match。
type Key struct {
	Method string
	URL    string
	Header http.Header
}

// DefaultKey 从请求派生默认缓存键：方法 + 完整 URL + 原始请求头。
func DefaultKey(req *Request) Key {
	return Key{
		Method: strings.ToUpper(req.Method),
		URL:    req.URL.String(),
		Header: req.Header,
	}
}

// String 返回写入存储的键标识。
func (k Key) String() string {
	return k.Method + " " + k.URL
}

// WithURL 返回替换了 URL 的键副本，供调用方改写命名空间。
func (k Key) WithURL(u *url.URL) Key {
	k.URL = u.String()
	return k
}

func cloneHeader(h http.Header) http.Header {
	cloned := h.Clone()
	if cloned == nil {
		cloned = http.Header{}
	}
	return cloned
}
