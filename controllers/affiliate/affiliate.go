package affiliate

import (
	"partnerhub/controllers"
	"partnerhub/helpers"
	"partnerhub/middlewares"
	"partnerhub/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *services.Services
}

func New(svc *services.Services) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}

	d, err := h.svc.Dashboard.Affiliate(c.UserContext(), acct.OwnerID())
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Dashboard retrieved successfully", d)
}

func (h *Handler) Earnings(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}

	list, err := h.svc.Dashboard.Earnings(c.UserContext(), acct.OwnerID(), c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Earnings retrieved successfully", list)
}

func (h *Handler) Payouts(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}
	return controllers.ListWithdrawals(c, h.svc, acct)
}

func (h *Handler) RequestPayout(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}
	return controllers.RequestWithdrawal(c, h.svc, acct)
}
