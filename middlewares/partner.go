package middlewares

import (
	"errors"

	"partnerhub/controllers"
	"partnerhub/helpers"
	"partnerhub/models"
	"partnerhub/services"

	"github.com/gofiber/fiber/v2"
)

const partnerLocal = "partner"

// PartnerAuth resolves the X-Partner-Code and X-Secret-Key headers to an
// account of the given role and stores it in the request locals.
func PartnerAuth(accounts *services.Accounts, role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Get("X-Partner-Code")
		secret := c.Get("X-Secret-Key")

		if code == "" || secret == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "PARTNER_CODE_AND_SECRET_REQUIRED", nil)
		}

		acct, err := accounts.Authenticate(c.UserContext(), role, code, secret)
		if errors.Is(err, services.ErrNotFound) {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_CREDENTIALS", nil)
		}
		if err != nil {
			return controllers.HandleError(c, err)
		}

		c.Locals(partnerLocal, acct)
		return c.Next()
	}
}

// Partner returns the account authenticated by PartnerAuth.
func Partner(c *fiber.Ctx) (models.PartnerAccount, bool) {
	acct, ok := c.Locals(partnerLocal).(models.PartnerAccount)
	return acct, ok
}
