package httpapi

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "coastal-threat-monitor"

// NewApp builds the Fiber app with the centralized error handler, panic recovery,
// health and metrics endpoints. API routes are added by RegisterRoutes.
func NewApp(middleware ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	for _, mw := range middleware {
		app.Use(mw)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// errorHandler renders every error as {"error": true, "message": ...}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// OnListening returns a channel that is closed once the app's listener is bound.
func OnListening(app *fiber.App) <-chan struct{} {
	ready := make(chan struct{})
	var once sync.Once
	app.Hooks().OnListen(func(fiber.ListenData) error {
		once.Do(func() { close(ready) })
		return nil
	})
	return ready
}
