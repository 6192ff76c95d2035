package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v3"

	"github.com/kumardeo/blogger-pwa/internal/edgecache"
)

// AssetHandler describes the component responsible for resolving an asset
// request into a response. It allows injecting fake resolvers during tests.
// A (nil, nil) return means no asset matched and the entry point renders 404.
type AssetHandler interface {
	ServeAsset(ctx context.Context, req *edgecache.Request) (*edgecache.Response, error)
}

// AssetHandlerFunc adapts a function to the AssetHandler interface.
type AssetHandlerFunc func(ctx context.Context, req *edgecache.Request) (*edgecache.Response, error)

// ServeAsset makes AssetHandlerFunc satisfy AssetHandler.
func (f AssetHandlerFunc) ServeAsset(ctx context.Context, req *edgecache.Request) (*edgecache.Response, error) {
	return f(ctx, req)
}

// neutralRequest 将 Fiber 请求转换为缓存层的中立请求模型。
func neutralRequest(c fiber.Ctx) (*edgecache.Request, error) {
	uri := c.Request().URI()
	parsed, err := url.Parse(string(uri.FullURI()))
	if err != nil {
		return nil, err
	}
	return &edgecache.Request{
		Method: c.Method(),
		URL:    parsed,
		Header: fiberHeadersAsHTTP(c),
	}, nil
}

func fiberHeadersAsHTTP(c fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return header
}
