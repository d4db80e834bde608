package controllers

import (
	"context"

	"github.com/canvasly/canvasly-server/canvas-service/config"
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/fx"
)

var canvasRoute = utils.JwtMiddlewareConfig{
	ReadFrom: "query",
	Subject:  "access",
	Scopes:   []string{"basic"},
}

type RoomController struct {
	fx.In

	Gateway *Gateway
}

func RegisterRoomController(r *utils.Router, config *config.Config, c RoomController) {
	r.Get("/health", c.health)

	r.Use("/canvas", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/canvas", utils.Protected(canvasRoute), websocket.New(func(conn *websocket.Conn) {
		userId, _ := conn.Locals("user").(int64)
		if config.MaxMessageSize > 0 {
			conn.SetReadLimit(config.MaxMessageSize)
		}

		c.Gateway.Serve(context.Background(), userId, conn)
	}))
}

func (r *RoomController) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"rooms":  r.Gateway.Rooms(),
	})
}
