package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kumardeo/blogger-pwa/internal/version"
)

// RegisterDiagnostics 暴露 /-/healthz 与 /-/metrics 诊断接口，
// 供探活与 Prometheus 抓取使用。
func RegisterDiagnostics(app *fiber.App, mode string) {
	if app == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"mode":    mode,
			"version": version.Version,
		})
	})

	app.Get("/-/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
