package admin

import (
	"partnerhub/controllers"
	"partnerhub/helpers"
	"partnerhub/middlewares"
	"partnerhub/models"
	"partnerhub/services"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *services.Services
}

func New(svc *services.Services) *Handler {
	return &Handler{svc: svc}
}

// Withdrawals is the review queue across all partners.
func (h *Handler) Withdrawals(c *fiber.Ctx) error {
	list, err := h.svc.Withdrawals.List(c.UserContext(), services.WithdrawalQuery{
		UserID: uint(c.QueryInt("user_id", 0)),
		Role:   models.Role(c.Query("role")),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
	})
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Withdrawals retrieved successfully", list)
}

type ProcessWithdrawalRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (h *Handler) ProcessWithdrawal(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_WITHDRAWAL_ID")
	}

	var req ProcessWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	action, err := services.ParseAction(req.Action)
	if err != nil {
		return controllers.HandleError(c, err)
	}

	w, err := h.svc.Withdrawals.Process(c.UserContext(), uint(id), action, middlewares.AdminID(c), req.Reason)
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Withdrawal "+string(w.Status), w)
}
