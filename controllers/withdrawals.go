package controllers

import (
	"time"

	"partnerhub/helpers"
	"partnerhub/models"
	"partnerhub/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WithdrawalBody struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails string          `json:"payment_details"`
}

// RequestWithdrawal reserves a withdrawal for the authenticated partner.
func RequestWithdrawal(c *fiber.Ctx, svc *services.Services, acct models.PartnerAccount) error {
	var body WithdrawalBody
	if err := c.BodyParser(&body); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	w, err := svc.Withdrawals.Request(c.UserContext(), services.WithdrawalRequest{
		UserID:         acct.OwnerID(),
		Role:           acct.PartnerRole(),
		Amount:         body.Amount,
		PaymentMethod:  body.PaymentMethod,
		PaymentDetails: body.PaymentDetails,
	})
	if err != nil {
		return HandleError(c, err)
	}

	return helpers.JSONCreated(c, "Withdrawal request submitted", w)
}

// ListWithdrawals lists the authenticated partner's withdrawals.
func ListWithdrawals(c *fiber.Ctx, svc *services.Services, acct models.PartnerAccount) error {
	list, err := svc.Withdrawals.List(c.UserContext(), services.WithdrawalQuery{
		UserID: acct.OwnerID(),
		Role:   acct.PartnerRole(),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
	})
	if err != nil {
		return HandleError(c, err)
	}

	return helpers.JSONSuccess(c, "Withdrawals retrieved successfully", list)
}

// DateRange reads the optional from/to query parameters as UTC days. The
// upper bound covers the whole of its day.
func DateRange(c *fiber.Ctx) (from, to *time.Time, ok bool) {
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, nil, false
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, nil, false
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, true
}
