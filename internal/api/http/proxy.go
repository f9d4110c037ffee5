package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

const notConfiguredMessage = "OpenWeather API not configured on server"

// registerProxyRoutes serves the weather proxy in the envelope the Provider
// Adapter expects: {status, data, message}.
func registerProxyRoutes(app *fiber.App, weather WeatherSource) {
	ow := app.Group("/api/openweather")

	ow.Get("/status", func(c *fiber.Ctx) error {
		configured := weather != nil && weather.Configured()
		return c.JSON(fiber.Map{
			"status":     "success",
			"configured": configured,
			"hasKey":     configured,
		})
	})

	ow.Get("/current", func(c *fiber.Ctx) error {
		if weather == nil || !weather.Configured() {
			return proxyError(c, fiber.StatusBadRequest, notConfiguredMessage)
		}

		if c.Query("lat") == "" || c.Query("lon") == "" {
			return proxyError(c, fiber.StatusBadRequest, "lat and lon query parameters are required")
		}
		coords, err := parseOptionalCoords(c)
		if err != nil {
			return proxyError(c, fiber.StatusBadRequest, err.Error())
		}

		snap, err := weather.FetchWeather(c.UserContext(), *coords)
		if err != nil {
			status := fiber.StatusBadGateway
			if errors.Is(err, coastal.ErrTimeout) {
				status = fiber.StatusGatewayTimeout
			}
			return proxyError(c, status, err.Error())
		}
		return c.JSON(fiber.Map{"status": "success", "data": snap})
	})
}

func proxyError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}
