package config

import (
	"crypto/rsa"
	"time"

	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port               string         `env:"LISTEN_ADDR" envDefault:":3000"`
	Timeout            uint64         `env:"TIMEOUT" envDefault:"10"`
	ReadBufferSize     int            `env:"READ_BUFFER_SIZE" envDefault:"4096"`
	BodyLimit          int            `env:"BODY_LIMIT" envDefault:"1048576"`
	AppName            string         `env:"APP_NAME" envDefault:"Canvasly"`
	IsProduction       bool           `env:"PRODUCTION"`
	CookieKey          string         `env:"COOKIE_KEY"`
	Dsn                string         `env:"DSN"`
	Migrate            bool           `env:"MIGRATE"`
	JwtPublicKey       string         `env:"JWT_PUBLIC_KEY"`
	JwtParsedPublicKey *rsa.PublicKey `json:"-"`
	AppUrl             string         `env:"APP_URL" envDefault:"http://localhost:3000"`
	InviteTTL          time.Duration  `env:"INVITE_TTL" envDefault:"168h"`
}

func Parse() (*Config, error) {
	cfg := Config{
		IsProduction: utils.ParseFlags(),
	}

	if err := env.Parse(&cfg); err != nil {
		log.Panic().Err(err).Msg("Failed to parse env config")
	}

	cfg.JwtParsedPublicKey = utils.ParsePublicKey(cfg.JwtPublicKey)

	return &cfg, nil
}

// InviteLink is the page an invitee opens to accept token.
func (c *Config) InviteLink(token string) string {
	return c.AppUrl + "/invite/" + token
}
