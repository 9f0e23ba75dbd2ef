package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Taxonomy. Handlers switch on these with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrConflict            = errors.New("conflict")
)

var (
	ErrAccountNotFound    = fmt.Errorf("partner account %w", ErrNotFound)
	ErrPlayerNotFound     = fmt.Errorf("player %w", ErrNotFound)
	ErrReferralNotFound   = fmt.Errorf("referral %w", ErrNotFound)
	ErrCommissionNotFound = fmt.Errorf("commission %w", ErrNotFound)
	ErrWithdrawalNotFound = fmt.Errorf("withdrawal %w", ErrNotFound)

	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrAmountPrecision      = fmt.Errorf("%w: amount has more than two decimal places", ErrValidation)
	ErrInvalidAction        = fmt.Errorf("%w: action must be approve or reject", ErrValidation)
	ErrInvalidRole          = fmt.Errorf("%w: role must be agent or affiliate", ErrValidation)
	ErrInvalidRate          = fmt.Errorf("%w: rate must be within [0,100]", ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unsupported payment method", ErrValidation)
	ErrInvalidStatus        = fmt.Errorf("%w: unknown status", ErrValidation)
	ErrMissingField         = fmt.Errorf("%w: required field missing", ErrValidation)
	ErrBelowMinimum         = fmt.Errorf("%w: amount below minimum withdrawal", ErrValidation)

	ErrDuplicateAccount = fmt.Errorf("%w: partner account already exists", ErrConflict)
	ErrDuplicateEvent   = fmt.Errorf("%w: activity event already recorded", ErrConflict)
	ErrDuplicateEmail   = fmt.Errorf("%w: email already registered", ErrConflict)
)

// BelowMinimumError matches both ErrBelowMinimum and ErrValidation.
type BelowMinimumError struct {
	Minimum decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum withdrawal amount is %s", e.Minimum.StringFixed(2))
}

func (e *BelowMinimumError) Is(target error) bool {
	return target == ErrBelowMinimum || target == ErrValidation
}

// InsufficientBalanceError carries the balance available when the request failed.
type InsufficientBalanceError struct {
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance, available: %s", e.Available.StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
