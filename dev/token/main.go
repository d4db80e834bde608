package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/rs/zerolog/log"
)

func main() {
	user := flag.Int64("user", 1, "user id")
	email := flag.String("email", "", "user email")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	utils.ConfigureLogger()

	key := os.Getenv("JWT_PRIVATE_KEY")
	if key == "" {
		log.Fatal().Msg("JWT_PRIVATE_KEY is not set")
	}

	token, err := utils.CreateJwt(utils.JwtConfig{
		User:       strconv.FormatInt(*user, 10),
		ExpireIn:   *ttl,
		Scope:      "basic",
		Subject:    "access",
		Data:       map[string]string{"email": *email},
		PrivateKey: utils.ParsePrivateKey(key),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	fmt.Println(token)
}
