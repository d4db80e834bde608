package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/canvasly/canvasly-server/canvas-service/config"
	"github.com/canvasly/canvasly-server/canvas-service/rooms"
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMember string

func (f fakeMember) ID() string          { return string(f) }
func (f fakeMember) Send(_ []byte) bool { return true }

func TestRoomControllerRoutes(t *testing.T) {
	registry := rooms.NewRegistry()
	registry.Join(3, fakeMember("a"))

	app := fiber.New()
	RegisterRoomController(utils.GetDefaultRouter(app), &config.Config{}, RoomController{
		Gateway: NewGateway(registry, GatewayConfig{}),
	})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["rooms"])

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/canvas", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, res.StatusCode)
}
