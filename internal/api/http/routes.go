package httpapi

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

var validate = validator.New()

// WeatherSource backs the weather proxy route.
type WeatherSource interface {
	FetchWeather(ctx context.Context, coords coastal.Coordinates) (coastal.WeatherSnapshot, error)
	Configured() bool
}

// Deps are the collaborators of the HTTP layer. Weather and Geocoder are optional.
type Deps struct {
	Service  *coastal.Service
	Weather  WeatherSource
	Geocoder coastal.Geocoder
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	registerProxyRoutes(app, deps.Weather)

	h := &handlers{service: deps.Service, geocoder: deps.Geocoder}
	v1 := app.Group("/api/v1")

	v1.Get("/stations", h.listStations)
	v1.Get("/stations/:stationId", h.getStation)

	v1.Get("/currents", h.listCurrents)
	v1.Get("/currents/:stationId", h.getCurrents)
	v1.Get("/currents/:stationId/live", h.getLiveStats)
	v1.Post("/currents/:stationId/refresh", h.refreshCurrents)
	v1.Delete("/currents/:stationId", h.clearCurrents)
	v1.Delete("/currents", h.clearAll)

	v1.Get("/threats/latest", h.latestThreats)
	v1.Get("/threats", h.getThreats)
}

type handlers struct {
	service  *coastal.Service
	geocoder coastal.Geocoder
}

func (h *handlers) listStations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"stations": h.service.Stations()})
}

func (h *handlers) getStation(c *fiber.Ctx) error {
	id := c.Params("stationId")
	coords, ok := h.service.Resolve(id, nil)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown station")
	}
	return c.JSON(coastal.StationCoordinate{StationID: id, Lat: coords.Lat, Lon: coords.Lon})
}

func (h *handlers) listCurrents(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"stations": h.service.CachedKeys()})
}

func (h *handlers) getCurrents(c *fiber.Ctx) error {
	series, err := h.service.Series(c.Params("stationId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(series)
}

func (h *handlers) getLiveStats(c *fiber.Ctx) error {
	stats, err := h.service.LiveStats(c.Params("stationId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(stats)
}

func (h *handlers) refreshCurrents(c *fiber.Ctx) error {
	explicit, err := parseOptionalCoords(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	series, err := h.service.GetCurrents(c.UserContext(), c.Params("stationId"), explicit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(series)
}

func (h *handlers) clearCurrents(c *fiber.Ctx) error {
	h.service.ClearStation(c.Params("stationId"))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) clearAll(c *fiber.Ctx) error {
	h.service.ClearAll()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) latestThreats(c *fiber.Ctx) error {
	a, err := h.service.LatestAssessment()
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(a)
}

// threatsQuery selects a location by coordinates, station or place name, in that order.
type threatsQuery struct {
	Station string `validate:"omitempty,max=64"`
	City    string `validate:"required_with=Country"`
	Country string
}

func (h *handlers) getThreats(c *fiber.Ctx) error {
	explicit, err := parseOptionalCoords(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	if explicit != nil {
		a, err := h.service.GetThreats(ctx, *explicit)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(a)
	}

	q := threatsQuery{Station: c.Query("station"), City: c.Query("city"), Country: c.Query("country")}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	switch {
	case q.Station != "":
		a, err := h.service.GetThreatsForStation(ctx, q.Station, nil)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(a)

	case q.City != "":
		if h.geocoder == nil {
			return fiber.NewError(fiber.StatusNotImplemented, "place name lookup is not configured")
		}
		coords, err := h.geocoder.Geocode(ctx, q.City, q.Country)
		if err != nil {
			if errors.Is(err, coastal.ErrTimeout) {
				return toHTTPError(err)
			}
			return fiber.NewError(fiber.StatusNotFound, "could not locate "+q.City)
		}
		a, err := h.service.GetThreats(ctx, coords)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(a)

	default:
		return fiber.NewError(fiber.StatusBadRequest, "one of lat and lon, station, or city is required")
	}
}

// coordsQuery holds a lat/lon pair.
type coordsQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// parseOptionalCoords returns nil when neither lat nor lon is given.
func parseOptionalCoords(c *fiber.Ctx) (*coastal.Coordinates, error) {
	lat, err := parseFloatQuery(c, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloatQuery(c, "lon")
	if err != nil {
		return nil, err
	}
	if lat == nil && lon == nil {
		return nil, nil
	}
	if lat == nil || lon == nil {
		return nil, errors.New("lat and lon must be given together")
	}

	q := coordsQuery{Lat: *lat, Lon: *lon}
	if err := validate.Struct(q); err != nil {
		return nil, err
	}
	return &coastal.Coordinates{Lat: q.Lat, Lon: q.Lon}, nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.New(key + " must be a finite number")
	}
	return &v, nil
}

// toHTTPError maps domain errors onto status codes.
func toHTTPError(err error) error {
	var unavailable *coastal.BackendUnavailableError
	var providerErr *coastal.ProviderError
	switch {
	case errors.Is(err, coastal.ErrCoordinateUnresolved), errors.Is(err, coastal.ErrInvalidCoordinates):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, coastal.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no data for requested station")
	case errors.Is(err, coastal.ErrSuperseded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.As(err, &unavailable), errors.As(err, &providerErr),
		errors.Is(err, coastal.ErrTimeout), errors.Is(err, coastal.ErrCircuitOpen):
		return fiber.NewError(fiber.StatusServiceUnavailable, "data unavailable: "+err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}
