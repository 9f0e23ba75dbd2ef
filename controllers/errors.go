package controllers

import (
	"errors"

	"partnerhub/helpers"
	"partnerhub/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type errorCode struct {
	err  error
	code string
}

var validationCodes = []errorCode{
	{services.ErrBelowMinimum, "BELOW_MINIMUM"},
	{services.ErrInvalidAmount, "INVALID_AMOUNT"},
	{services.ErrAmountPrecision, "INVALID_AMOUNT_PRECISION"},
	{services.ErrInvalidAction, "INVALID_ACTION"},
	{services.ErrInvalidRole, "INVALID_ROLE"},
	{services.ErrInvalidRate, "INVALID_RATE"},
	{services.ErrInvalidPaymentMethod, "INVALID_PAYMENT_METHOD"},
	{services.ErrInvalidStatus, "INVALID_STATUS"},
	{services.ErrMissingField, "MISSING_FIELD"},
}

var notFoundCodes = []errorCode{
	{services.ErrAccountNotFound, "ACCOUNT_NOT_FOUND"},
	{services.ErrPlayerNotFound, "PLAYER_NOT_FOUND"},
	{services.ErrReferralNotFound, "REFERRAL_NOT_FOUND"},
	{services.ErrCommissionNotFound, "COMMISSION_NOT_FOUND"},
	{services.ErrWithdrawalNotFound, "WITHDRAWAL_NOT_FOUND"},
}

var conflictCodes = []errorCode{
	{services.ErrDuplicateAccount, "ACCOUNT_ALREADY_EXISTS"},
	{services.ErrDuplicateEvent, "DUPLICATE_EVENT"},
	{services.ErrDuplicateEmail, "EMAIL_ALREADY_REGISTERED"},
}

// HandleError maps a service error onto the response envelope.
func HandleError(c *fiber.Ctx, err error) error {
	var insufficient *services.InsufficientBalanceError
	var below *services.BelowMinimumError

	switch {
	case errors.As(err, &insufficient):
		return helpers.JSONErrorStatus(c, fiber.StatusBadRequest, "INSUFFICIENT_BALANCE", fiber.Map{
			"available": insufficient.Available.StringFixed(2),
		})
	case errors.As(err, &below):
		return helpers.JSONErrorStatus(c, fiber.StatusBadRequest, "BELOW_MINIMUM", fiber.Map{
			"minimum": below.Minimum.StringFixed(2),
		})
	case errors.Is(err, services.ErrValidation):
		return helpers.JSONErrorStatus(c, fiber.StatusBadRequest, codeFor(err, validationCodes, "VALIDATION_FAILED"), nil)
	case errors.Is(err, services.ErrNotFound):
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, codeFor(err, notFoundCodes, "NOT_FOUND"), nil)
	case errors.Is(err, services.ErrAlreadyProcessed):
		return helpers.JSONErrorStatus(c, fiber.StatusConflict, "ALREADY_PROCESSED", nil)
	case errors.Is(err, services.ErrConflict):
		return helpers.JSONErrorStatus(c, fiber.StatusConflict, codeFor(err, conflictCodes, "CONFLICT"), nil)
	}

	log.WithError(err).WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("request failed")
	return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", nil)
}

func codeFor(err error, codes []errorCode, fallback string) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return fallback
}
