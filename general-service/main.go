package main

import (
	"context"

	"github.com/canvasly/canvasly-server/general-service/config"
	"github.com/canvasly/canvasly-server/general-service/controllers"
	"github.com/canvasly/canvasly-server/general-service/invitations"
	"github.com/canvasly/canvasly-server/models"
	"github.com/canvasly/canvasly-server/repos"
	"github.com/canvasly/canvasly-server/server-go"
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/uptrace/bun"
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
		fx.Invoke(migrate),
		fx.Provide(server.CreateServer),
		fx.Provide(utils.GetDefaultRouter),
		fx.Provide(repos.NewUserRepo),
		fx.Provide(repos.NewProjectRepo),
		fx.Provide(repos.NewMembershipRepo),
		fx.Provide(repos.NewInvitationRepo),
		fx.Provide(func(config *config.Config, p *repos.ProjectRepo, m *repos.MembershipRepo, i *repos.InvitationRepo) *invitations.Engine {
			return invitations.NewEngine(p, m, i, config.InviteTTL)
		}),
		fx.Invoke(controllers.RegisterHealthController),
		fx.Invoke(controllers.RegisterProjectsController),
		fx.Invoke(controllers.RegisterInvitesController),
	}
}

func migrate(db *bun.DB, config *config.Config) error {
	if !config.Migrate {
		return nil
	}

	return models.CreateTables(context.Background(), db)
}
