package admin

import (
	"partnerhub/controllers"
	"partnerhub/helpers"
	"partnerhub/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateAgentRequest struct {
	UserID         uint             `json:"user_id"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

func (h *Handler) CreateAgent(c *fiber.Ctx) error {
	var req CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	agent, err := h.svc.Accounts.CreateAgent(c.UserContext(), req.UserID, req.CommissionRate)
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONCreated(c, "Agent registered successfully", fiber.Map{
		"id":              agent.ID,
		"user_id":         agent.UserID,
		"agent_code":      agent.AgentCode,
		"secret_key":      agent.SecretKey,
		"commission_rate": agent.CommissionRate,
	})
}

type CreateAffiliateRequest struct {
	UserID              uint             `json:"user_id"`
	RevenueSharePercent *decimal.Decimal `json:"revenue_share_percent"`
}

func (h *Handler) CreateAffiliate(c *fiber.Ctx) error {
	var req CreateAffiliateRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	affiliate, err := h.svc.Accounts.CreateAffiliate(c.UserContext(), req.UserID, req.RevenueSharePercent)
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONCreated(c, "Affiliate registered successfully", fiber.Map{
		"id":                    affiliate.ID,
		"user_id":               affiliate.UserID,
		"referral_code":         affiliate.ReferralCode,
		"secret_key":            affiliate.SecretKey,
		"revenue_share_percent": affiliate.RevenueSharePercent,
	})
}

func (h *Handler) CancelCommission(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, "INVALID_COMMISSION_ID")
	}

	commission, err := h.svc.Accrual.CancelCommission(c.UserContext(), uint(id), middlewares.AdminID(c))
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Commission cancelled", commission)
}
