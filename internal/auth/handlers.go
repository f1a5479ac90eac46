package auth

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": UserID(c),
			"subject": c.Locals(localSubject),
			"role":    c.Locals(localRole),
		})
	})
}
