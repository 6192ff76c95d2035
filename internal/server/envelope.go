package server

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
)

// renderNotFound 输出资产未命中的统一 404 结构。
func renderNotFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    "not_found",
			"message": "File not found",
		},
	})
}

// renderMethodNotAllowed 输出非 GET/HEAD 方法的统一 405 结构。
func renderMethodNotAllowed(c fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    "method_not_allowed",
			"message": "Method not allowed",
		},
	})
}

// renderInternalError 把任意下游错误规整为 500 结构，
// 非生产环境附带调用栈方便排查。
func renderInternalError(c fiber.Ctx, err error, production bool) error {
	payload := fiber.Map{
		"code":    "internal_error",
		"name":    fmt.Sprintf("%T", err),
		"message": err.Error(),
	}
	if !production {
		payload["stack"] = string(debug.Stack())
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   payload,
	})
}
