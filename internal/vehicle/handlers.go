package vehicle

import (
	"errors"

	"github.com/AutoMind-2527/Backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/:id/service", authMiddleware, func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid vehicle id")
		}
		v, status, err := svc.ServiceStatus(c.Context(), int64(id))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "vehicle not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !auth.IsAdmin(c) && v.UserID != auth.UserID(c) {
			return fiber.NewError(fiber.StatusNotFound, "vehicle not found")
		}
		return c.JSON(status)
	})
}
