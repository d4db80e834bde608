package main

import (
	"context"

	"github.com/canvasly/canvasly-server/canvas-service/config"
	"github.com/canvasly/canvasly-server/canvas-service/controllers"
	"github.com/canvasly/canvasly-server/canvas-service/rooms"
	"github.com/canvasly/canvasly-server/repos"
	"github.com/canvasly/canvasly-server/server-go"
	"github.com/canvasly/canvasly-server/utils-go"
	"go.uber.org/fx"
)

func main() {

	opts := []fx.Option{}
	opts = append(opts, provideOptions()...)
	opts = append(opts, fx.Invoke(server.Run))

	app := fx.New(opts...)

	app.Run()
}

func provideOptions() []fx.Option {
	return []fx.Option{
		fx.Invoke(utils.ConfigureLogger),
		fx.Provide(config.Parse),
		fx.Provide(utils.ConvertConfig[config.Config, server.Config]),
		fx.Provide(utils.ConvertConfig[config.Config, utils.PostgresConfig]),
		fx.Invoke(func(config *config.Config) {
			utils.InitSharedConstants(config.JwtParsedPublicKey)
		}),
		fx.Provide(utils.ProvidePostgres),
		fx.Provide(server.CreateServer),
		fx.Provide(utils.GetDefaultRouter),
		fx.Provide(repos.NewMembershipRepo),
		fx.Provide(rooms.NewRegistry),
		fx.Provide(provideGateway),
		fx.Invoke(controllers.RegisterRoomController),
	}
}

func provideGateway(registry *rooms.Registry, memberships *repos.MembershipRepo, config *config.Config) *controllers.Gateway {
	gatewayConfig := controllers.GatewayConfig{
		SendBuffer:     config.SendBuffer,
		MaxMessageSize: config.MaxMessageSize,
		MaxPoints:      config.MaxPoints,
		PingInterval:   config.PingInterval,
		PongWait:       config.PongWait,
	}

	if config.RequireMembership {
		gatewayConfig.Authorize = func(ctx context.Context, userId, projectId int64) (bool, error) {
			return memberships.IsMember(ctx, userId, projectId)
		}
	}

	return controllers.NewGateway(registry, gatewayConfig)
}
