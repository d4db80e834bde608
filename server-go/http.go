package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/helmet/v2"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

type Config struct {
	Port           string `env:"LISTEN_ADDR" envDefault:":3000"`
	Timeout        uint64 `env:"TIMEOUT" envDefault:"10"`
	ReadBufferSize int    `env:"READ_BUFFER_SIZE" envDefault:"4096"`
	BodyLimit      int    `env:"BODY_LIMIT" envDefault:"1048576"`
	AppName        string `env:"APP_NAME" envDefault:"Canvasly"`
	IsProduction   bool   `env:"PRODUCTION"`
	CookieKey      string `env:"COOKIE_KEY"`
}

// CreateServer builds the fiber app shared by every service: request ids,
// panic recovery, JSON errors and an access log. Production adds security
// headers.
func CreateServer(config *Config) *fiber.App {
	timeout := time.Second * time.Duration(config.Timeout)

	app := fiber.New(fiber.Config{
		AppName:           config.AppName,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		ProxyHeader:       fiber.HeaderXForwardedFor,
		ReadBufferSize:    config.ReadBufferSize,
		BodyLimit:         config.BodyLimit,
		ErrorHandler:      errorHandler,
		EnablePrintRoutes: !config.IsProduction,
	})

	app.Use(requestid.New())
	app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: logPanic,
	}))
	app.Use(accessLog)

	if config.CookieKey != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{Key: config.CookieKey}))
	}

	if config.IsProduction {
		app.Use(helmet.New())
	} else {
		log.Info().Msg("Running in DEV mode")
	}

	return app
}

// errorHandler renders errors that escape a handler as {"error": ...}.
// Anything that is not a *fiber.Error is reported as a bare 500.
func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func logPanic(c *fiber.Ctx, e interface{}) {
	log.Error().
		Str("panic", fmt.Sprint(e)).
		Str("path", c.Path()).
		Str("request_id", requestId(c)).
		Msg(string(debug.Stack()))
}

func accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	log.Debug().
		Str("request_id", requestId(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("Request")

	return err
}

func requestId(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}

// Run ties the fiber listener to the fx lifecycle.
func Run(app *fiber.App, config *Config, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			errChan := make(chan error, 1)

			go func() {
				errChan <- app.Listen(config.Port)
			}()

			select {
			case err := <-errChan:
				return err
			case <-time.After(100 * time.Millisecond):
				log.Info().Str("addr", config.Port).Msg("Listening")
				return nil
			}
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}
