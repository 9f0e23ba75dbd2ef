package helpers

import (
	"github.com/gofiber/fiber/v2"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONCreated(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, message string) error {
	return JSONErrorStatus(c, fiber.StatusBadRequest, message, nil)
}

// JSONErrorStatus writes the error envelope with an explicit status and
// optional payload, e.g. the available balance of a refused withdrawal.
func JSONErrorStatus(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    data,
	})
}
