package activity

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// ServerConfig is loaded from SERVER_*.
type ServerConfig struct {
	Addr         string        `split_words:"true" default:":3978"`
	BodyLimit    int           `split_words:"true" default:"1048576"`
	ReadTimeout  time.Duration `split_words:"true" default:"10s"`
	WriteTimeout time.Duration `split_words:"true" default:"60s"`
}

func NewServer(router *Router, cfg ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "dental-assistant-bot",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	app.Post("/api/messages", func(c *fiber.Ctx) error {
		var act Activity
		if err := c.BodyParser(&act); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid activity body")
		}

		result, err := router.Handle(c.UserContext(), act)
		if err != nil {
			if errors.Is(err, contractx.ErrValidation) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		return c.JSON(result)
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
