package agent

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

	d, err := h.svc.Dashboard.Agent(c.UserContext(), acct.OwnerID())
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Dashboard retrieved successfully", d)
}

func (h *Handler) Commissions(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}

	from, to, ok := controllers.DateRange(c)
	if !ok {
		return helpers.JSONError(c, "INVALID_DATE")
	}

	list, err := h.svc.Dashboard.Commissions(c.UserContext(), services.CommissionQuery{
		UserID: acct.OwnerID(),
		From:   from,
		To:     to,
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	})
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Commissions retrieved successfully", list)
}

func (h *Handler) Withdrawals(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}
	return controllers.ListWithdrawals(c, h.svc, acct)
}

func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}
	return controllers.RequestWithdrawal(c, h.svc, acct)
}

func (h *Handler) Players(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}

	list, err := h.svc.Accounts.ListPlayers(c.UserContext(), services.PlayerQuery{
		UserID: acct.OwnerID(),
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
	})
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Players retrieved successfully", list)
}

func (h *Handler) Player(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_PLAYER_ID")
	}

	detail, err := h.svc.Accounts.GetPlayer(c.UserContext(), acct.OwnerID(), uint(id))
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Player retrieved successfully", detail)
}

func (h *Handler) TogglePlayerStatus(c *fiber.Ctx) error {
	acct, ok := middlewares.Partner(c)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_PARTNER_SESSION", nil)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_PLAYER_ID")
	}

	player, err := h.svc.Accounts.TogglePlayerStatus(c.UserContext(), acct.OwnerID(), uint(id))
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Player status updated", player)
}
