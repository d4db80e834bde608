package config

import (
	"crypto/rsa"
	"time"

	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port               string         `env:"LISTEN_ADDR" envDefault:":3001"`
	Timeout            uint64         `env:"TIMEOUT" envDefault:"10"`
	ReadBufferSize     int            `env:"READ_BUFFER_SIZE" envDefault:"4096"`
	BodyLimit          int            `env:"BODY_LIMIT" envDefault:"1048576"`
	AppName            string         `env:"APP_NAME" envDefault:"Canvasly"`
	IsProduction       bool           `env:"PRODUCTION"`
	CookieKey          string         `env:"COOKIE_KEY"`
	Dsn                string         `env:"DSN"`
	JwtPublicKey       string         `env:"JWT_PUBLIC_KEY"`
	JwtParsedPublicKey *rsa.PublicKey `json:"-"`
	SendBuffer         int            `env:"SEND_BUFFER" envDefault:"64"`
	MaxMessageSize     int64          `env:"MAX_MESSAGE_SIZE" envDefault:"65536"`
	MaxPoints          int            `env:"MAX_POINTS" envDefault:"4096"`
	RequireMembership  bool           `env:"REQUIRE_MEMBERSHIP" envDefault:"true"`
	PingInterval       time.Duration  `env:"PING_INTERVAL" envDefault:"20s"`
	PongWait           time.Duration  `env:"PONG_WAIT" envDefault:"45s"`
}

func Parse() (*Config, error) {
	cfg := Config{
		IsProduction: utils.ParseFlags(),
	}

	if err := env.Parse(&cfg); err != nil {
		log.Panic().Err(err).Msg("Failed to parse env config")
	}

	if cfg.PongWait > 0 && cfg.PongWait <= cfg.PingInterval {
		log.Panic().Dur("ping_interval", cfg.PingInterval).Dur("pong_wait", cfg.PongWait).Msg("PONG_WAIT must be longer than PING_INTERVAL")
	}

	cfg.JwtParsedPublicKey = utils.ParsePublicKey(cfg.JwtPublicKey)

	return &cfg, nil
}
