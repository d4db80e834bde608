package controllers

import (
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/gofiber/fiber/v2"
)

var (
	standardRoute utils.JwtMiddlewareConfig
)

func init() {
	standardRoute = utils.JwtMiddlewareConfig{
		ReadFrom: "header",
		Subject:  "access",
		Scopes:   []string{"basic"},
	}
}

func RegisterHealthController(r *utils.Router) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
