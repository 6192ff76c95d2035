package server

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kumardeo/blogger-pwa/internal/edgecache"
	"github.com/kumardeo/blogger-pwa/internal/logging"
)

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Assets     AssetHandler
	Production bool
}

const contextKeyRequestID = "_pwa_request_id"

// serviceWorkerPattern 命中 service worker 脚本路径时放宽其作用域。
var serviceWorkerPattern = regexp.MustCompile(`/(service-?worker\.js|sw\.js)`)

// NewApp builds a Fiber application with the asset entry handler and
// structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Assets == nil {
		return nil, errors.New("asset handler is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			opts.Logger.WithFields(logrus.Fields{
				"action": "request_error",
				"path":   string(c.Request().URI().Path()),
			}).Error(err.Error())
			return renderInternalError(c, err, opts.Production)
		},
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}

		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead:
		default:
			return renderMethodNotAllowed(c)
		}

		started := time.Now()
		req, err := neutralRequest(c)
		if err != nil {
			return err
		}

		resp, err := opts.Assets.ServeAsset(c.Context(), req)
		if err != nil {
			return err
		}
		if resp == nil {
			logRequest(opts.Logger, c, "", fiber.StatusNotFound, started)
			return renderNotFound(c)
		}
		// 透传的非缓存响应可能不带头部映射。
		if resp.Header == nil {
			resp.Header = http.Header{}
		}

		if serviceWorkerPattern.MatchString(req.URL.Path) {
			resp.Header.Set("Service-Worker-Allowed", "/")
		}

		logRequest(opts.Logger, c, resp.Header.Get("Cf-Cache-Status"), resp.StatusCode, started)
		return writeResponse(c, resp)
	})

	return app, nil
}

// requestIDMiddleware 为每个请求生成标识并回写 X-Request-ID。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func writeResponse(c fiber.Ctx, resp *edgecache.Response) error {
	for key, values := range resp.Header {
		for _, value := range values {
			c.Set(key, value)
		}
	}
	c.Status(resp.StatusCode)
	if c.Method() == fiber.MethodHead {
		return nil
	}
	return c.Send(resp.Body)
}

func logRequest(logger *logrus.Logger, c fiber.Ctx, cacheStatus string, status int, started time.Time) {
	fields := logging.RequestFields(
		c.Method(),
		string(c.Request().URI().Path()),
		cacheStatus,
		status,
		time.Since(started).Milliseconds(),
	)
	fields["action"] = "serve_asset"
	fields["request_id"] = RequestID(c)
	logger.WithFields(fields).Info("asset request")
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
