package middlewares

import (
	"crypto/subtle"
	"strconv"

	"partnerhub/helpers"

	"github.com/gofiber/fiber/v2"
)

const adminLocal = "admin_id"

// AdminAuth checks X-Admin-Key against the configured key. X-Admin-ID names
// the operator and is recorded on every transition they make.
func AdminAuth(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Admin-Key")
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_ADMIN_KEY", nil)
		}

		id, err := strconv.ParseUint(c.Get("X-Admin-ID"), 10, 64)
		if err != nil || id == 0 {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "ADMIN_ID_REQUIRED", nil)
		}

		c.Locals(adminLocal, uint(id))
		return c.Next()
	}
}

func AdminID(c *fiber.Ctx) uint {
	id, _ := c.Locals(adminLocal).(uint)
	return id
}
