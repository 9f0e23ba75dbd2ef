package ingest

import (
	"time"

	"partnerhub/controllers"
	"partnerhub/helpers"
	"partnerhub/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler receives activity events pushed by the gaming platform.
type Handler struct {
	svc *services.Services
}

func New(svc *services.Services) *Handler {
	return &Handler{svc: svc}
}

type PlayerRequest struct {
	AgentID   uint   `json:"agent_id"`
	AgentCode string `json:"agent_code"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

func (h *Handler) Player(c *fiber.Ctx) error {
	var req PlayerRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	player, err := h.svc.Accounts.RegisterPlayer(c.UserContext(), services.PlayerInput{
		AgentID:   req.AgentID,
		AgentCode: req.AgentCode,
		Name:      req.Name,
		Email:     req.Email,
	})
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONCreated(c, "Player registered", player)
}

type LossRequest struct {
	AgentID     uint            `json:"agent_id"`
	PlayerID    uint            `json:"player_id"`
	Loss        decimal.Decimal `json:"loss"`
	ExternalRef string          `json:"external_ref"`
	OccurredAt  *time.Time      `json:"occurred_at"`
	Description string          `json:"description"`
}

func (h *Handler) Loss(c *fiber.Ctx) error {
	var req LossRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	ev := services.LossEvent{
		AgentID:     req.AgentID,
		PlayerID:    req.PlayerID,
		Loss:        req.Loss,
		ExternalRef: req.ExternalRef,
		Description: req.Description,
	}
	if req.OccurredAt != nil {
		ev.OccurredAt = *req.OccurredAt
	}

	commission, agent, err := h.svc.Accrual.AccrueAgentCommission(c.UserContext(), ev)
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONCreated(c, "Commission recorded", fiber.Map{
		"commission": commission,
		"balances":   agent.Balances(),
	})
}

type ReferralRequest struct {
	AffiliateID  uint       `json:"affiliate_id"`
	ReferralCode string     `json:"referral_code"`
	PlayerName   string     `json:"player_name"`
	Email        string     `json:"email"`
	RegisteredAt *time.Time `json:"registered_at"`
}

func (h *Handler) Referral(c *fiber.Ctx) error {
	var req ReferralRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	in := services.ReferralInput{
		AffiliateID:  req.AffiliateID,
		ReferralCode: req.ReferralCode,
		PlayerName:   req.PlayerName,
		Email:        req.Email,
	}
	if req.RegisteredAt != nil {
		in.RegisteredAt = *req.RegisteredAt
	}

	referral, err := h.svc.Accounts.RegisterReferral(c.UserContext(), in)
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONCreated(c, "Referral registered", referral)
}

type DepositRequest struct {
	AffiliateID uint            `json:"affiliate_id"`
	ReferralID  uint            `json:"referral_id"`
	Deposit     decimal.Decimal `json:"deposit"`
	OccurredAt  *time.Time      `json:"occurred_at"`
}

func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	ev := services.DepositEvent{
		AffiliateID: req.AffiliateID,
		ReferralID:  req.ReferralID,
		Deposit:     req.Deposit,
	}
	if req.OccurredAt != nil {
		ev.OccurredAt = *req.OccurredAt
	}

	referral, affiliate, err := h.svc.Accrual.AccrueAffiliateRevenue(c.UserContext(), ev)
	if err != nil {
		return controllers.HandleError(c, err)
	}

	return helpers.JSONCreated(c, "Deposit recorded", fiber.Map{
		"referral": referral,
		"balances": affiliate.Balances(),
	})
}
