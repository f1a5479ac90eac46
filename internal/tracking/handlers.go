package tracking

import (
	"context"
	"errors"

	"github.com/AutoMind-2527/Backend/internal/auth"
	"github.com/AutoMind-2527/Backend/internal/lock"
	"github.com/AutoMind-2527/Backend/internal/vehicle"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Ping
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validatePing(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.Context(), svc.opts.IngestTimeout)
		defer cancel()
		res, err := svc.Ingest(ctx, req)
		if err != nil {
			return ingestError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(res)
	})

	r.Post("/feed/gtfsrt", authMiddleware, func(c *fiber.Ctx) error {
		feed, err := DecodeFeed(c.Body())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(svc.IngestFeed(c.Context(), feed))
	})

	r.Get("/", authMiddleware, auth.RequireAdmin(), func(c *fiber.Ctx) error {
		points, err := svc.ListPoints(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(points)
	})

	r.Post("/preview", authMiddleware, func(c *fiber.Ctx) error {
		var req PreviewRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		} else if err := c.QueryParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validateCoordinates(req.StartLat, req.StartLon); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "start: "+err.Error())
		}
		if err := validateCoordinates(req.EndLat, req.EndLon); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "end: "+err.Error())
		}
		return c.JSON(svc.Preview(req))
	})
}

func validatePing(p Ping) error {
	if p.VehicleID <= 0 {
		return errors.New("vehicle_id required")
	}
	if err := validateCoordinates(p.Lat, p.Lon); err != nil {
		return err
	}
	if p.SpeedKmh != nil && *p.SpeedKmh < 0 {
		return errors.New("speed_kmh must not be negative")
	}
	return nil
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return errors.New("latitude out of range")
	}
	if lon < -180 || lon > 180 {
		return errors.New("longitude out of range")
	}
	return nil
}

func ingestError(err error) error {
	switch {
	case errors.Is(err, vehicle.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrOutOfOrder):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, lock.ErrNotAcquired):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
