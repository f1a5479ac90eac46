package trip

import (
	"errors"

	"github.com/AutoMind-2527/Backend/internal/auth"
	"github.com/AutoMind-2527/Backend/internal/vehicle"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		t, err := svc.Create(c.Context(), auth.UserID(c), auth.IsAdmin(c), req)
		switch {
		case errors.Is(err, ErrInvalidTrip):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, vehicle.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "vehicle not found")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid trip id")
		}
		t, err := svc.GetWithPoints(c.Context(), int64(id))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !auth.IsAdmin(c) && t.UserID != auth.UserID(c) {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		return c.JSON(t)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid trip id")
		}
		err = svc.Delete(c.Context(), auth.UserID(c), auth.IsAdmin(c), int64(id))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
