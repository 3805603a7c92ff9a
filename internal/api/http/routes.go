package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/report"
	"github.com/kidsweather/kidsweather/internal/weather"
)

var validate = validator.New()

// Defaults supplies the coordinate used when a request omits lat/lon.
type Defaults struct {
	Lat float64
	Lon float64
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc *report.Service, defaults Defaults) {
	v1 := app.Group("/api/v1")

	v1.Get("/report", func(c *fiber.Ctx) error {
		coord, err := parseCoordinateQuery(c, defaults)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rep, err := svc.BuildReport(c.UserContext(), coord, report.Options{
			PromptOverride: c.Query("prompt"),
			Source:         "web",
		})
		if err != nil {
			var fetchErr *weather.FetchError
			var genErr *llm.GenerationError
			if errors.As(err, &fetchErr) || errors.As(err, &genErr) {
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build report")
		}

		return c.JSON(rep)
	})
}

// coordinateQuery holds query parameters identifying a report request.
type coordinateQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func parseCoordinateQuery(c *fiber.Ctx, defaults Defaults) (weather.Coordinate, error) {
	q := coordinateQuery{Lat: defaults.Lat, Lon: defaults.Lon}

	if latStr := c.Query("lat"); latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return weather.Coordinate{}, errors.New("lat must be a number")
		}
		q.Lat = lat
	}
	if lonStr := c.Query("lon"); lonStr != "" {
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return weather.Coordinate{}, errors.New("lon must be a number")
		}
		q.Lon = lon
	}

	if err := validate.Struct(q); err != nil {
		return weather.Coordinate{}, err
	}

	return weather.Coordinate{Lat: q.Lat, Lon: q.Lon}, nil
}
