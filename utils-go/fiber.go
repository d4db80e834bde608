package utils

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/rs/zerolog/log"
)

const authScheme = "Bearer"

var (
	publicKey *rsa.PublicKey
	Validator = validator.New()
)

type Router struct {
	fiber.Router
}

type JwtMiddlewareConfig struct {
	// ReadFrom is one of header, query or cookie.
	ReadFrom string
	Subject  string
	Scopes   []string
	// Optional lets unauthenticated requests through without identity locals.
	Optional bool
}

func GetDefaultRouter(app *fiber.App) *Router {
	temp := app.Group("")
	return &Router{Router: temp}
}

func InitSharedConstants(pubKey *rsa.PublicKey) {
	publicKey = pubKey
}

func accessDenied(c *fiber.Ctx, status int, description string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":             "access_denied",
		"error_description": description,
	})
}

func readToken(c *fiber.Ctx, readFrom string) (string, error) {
	switch readFrom {
	case "header":
		auth := c.Get(fiber.HeaderAuthorization)
		l := len(authScheme)
		if len(auth) > l+1 && strings.EqualFold(auth[:l], authScheme) {
			return auth[l+1:], nil
		}
	case "query":
		if token := c.Query("token"); token != "" {
			return token, nil
		}
	case "cookie":
		if token := c.Cookies("accessToken"); token != "" {
			return token, nil
		}
	default:
		return "", errors.New("Invalid token read location")
	}

	return "", errors.New("Missing or malformed JWT")
}

// Protected resolves the caller identity from an RS256 access token and
// stores it in the "user" (int64) and "email" (string) locals.
func Protected(config JwtMiddlewareConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawToken, err := readToken(c, config.ReadFrom)
		if err != nil {
			if config.Optional {
				return c.Next()
			}
			return accessDenied(c, fiber.StatusUnauthorized, err.Error())
		}

		tok, err := jwt.Parse(rawToken, func(jwtToken *jwt.Token) (interface{}, error) {
			if _, ok := jwtToken.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected method: %s", jwtToken.Header["alg"])
			}
			return publicKey, nil
		})
		if err != nil {
			return accessDenied(c, fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok || !tok.Valid {
			return accessDenied(c, fiber.StatusUnauthorized, "Invalid JWT")
		}

		if sub, _ := claims["sub"].(string); sub != config.Subject {
			return accessDenied(c, fiber.StatusUnauthorized, "Invalid JWT")
		}

		scope, _ := claims["scope"].(string)
		scopeArray := strings.Split(scope, " ")
		for _, s := range config.Scopes {
			if IsInList(s, &scopeArray) == -1 {
				return accessDenied(c, fiber.StatusForbidden, "Invalid scope")
			}
		}

		rawUser, _ := claims["user"].(string)
		id, err := strconv.ParseInt(rawUser, 10, 64)
		if err != nil || id <= 0 {
			return accessDenied(c, fiber.StatusUnauthorized, "Invalid JWT")
		}

		c.Locals("user", id)
		if data, ok := claims["data"].(map[string]interface{}); ok {
			if email, ok := data["email"].(string); ok {
				c.Locals("email", email)
			}
		}

		return c.Next()
	}
}

// Identity returns the caller resolved by Protected, or zero values.
func Identity(c *fiber.Ctx) (int64, string) {
	id, _ := c.Locals("user").(int64)
	email, _ := c.Locals("email").(string)
	return id, email
}

func ParsePublicKey(key string) *rsa.PublicKey {
	tempJwtPublicKey, err := DecodeBase64([]byte(key))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to decode jwt public key")
	}
	jwtPublicKey, err := jwt.ParseRSAPublicKeyFromPEM(tempJwtPublicKey)
	if err != nil {
		log.Panic().Err(err).Msg("Failed to parse jwt public key")
	}
	return jwtPublicKey
}

func ParsePrivateKey(key string) *rsa.PrivateKey {
	tempJwtPrivateKey, err := DecodeBase64([]byte(key))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to decode jwt private key")
	}
	jwtPrivateKey, err := jwt.ParseRSAPrivateKeyFromPEM(tempJwtPrivateKey)
	if err != nil {
		log.Panic().Err(err).Msg("Failed to parse jwt private key")
	}
	return jwtPrivateKey
}

func StandardInternalError(c *fiber.Ctx, err error) error {
	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func StandardCouldNotParse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Could not parse request",
	})
}

// StandardBodyParse parses and validates the request body into out. When ok
// is false the error response has already been written.
func StandardBodyParse(c *fiber.Ctx, out interface{}) (ok bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return false, StandardCouldNotParse(c)
	}

	if errs := ValidateStruct(Validator.Struct(out)); len(errs) > 0 {
		return false, c.Status(fiber.StatusBadRequest).JSON(errs)
	}

	return true, nil
}
