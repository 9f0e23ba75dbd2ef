package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"partnerhub/database"
	"partnerhub/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultRejectionReason = "Request rejected by admin"

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

type Withdrawals struct {
	store database.Store
	opts  Options
}

type WithdrawalRequest struct {
	UserID         uint
	Role           models.Role
	Amount         decimal.Decimal
	PaymentMethod  string
	PaymentDetails string
}

func normalizePaymentMethod(method string) (string, error) {
	switch method = strings.TrimSpace(method); method {
	case "":
		return models.PaymentBankTransfer, nil
	case models.PaymentBankTransfer, models.PaymentCrypto, models.PaymentEWallet:
		return method, nil
	}
	return "", ErrInvalidPaymentMethod
}

// Request reserves amount from the partner's withdrawable balance and records
// a pending withdrawal. The reservation and the insert commit together.
func (s *Withdrawals) Request(ctx context.Context, req WithdrawalRequest) (*models.Withdrawal, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !req.Amount.Equal(Round2(req.Amount)) {
		return nil, ErrAmountPrecision
	}
	method, err := normalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	amount := req.Amount

	acct, _, err := findPartner(ctx, s.store, req.Role, models.AccountQuery{UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	if available := acct.Balances().WithdrawableBalance; amount.GreaterThan(available) {
		return nil, &InsufficientBalanceError{Available: available}
	}
	if amount.LessThan(s.opts.MinWithdrawal) {
		return nil, &BelowMinimumError{Minimum: s.opts.MinWithdrawal}
	}

	withdrawal := &models.Withdrawal{
		UserID:         req.UserID,
		UserRole:       req.Role,
		Amount:         amount,
		Status:         models.WithdrawalPending,
		PaymentMethod:  method,
		PaymentDetails: req.PaymentDetails,
	}

	err = s.store.Transaction(ctx, func(tx database.Store) error {
		_, book, err := findPartner(ctx, tx, req.Role, models.AccountQuery{ID: acct.AccountID()})
		if err != nil {
			return err
		}

		if err := tx.CreateWithdrawal(ctx, withdrawal); err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}

		// The balance may have moved since the check above; the guarded
		// decrement is what actually decides.
		err = book.Reserve(ctx, amount, posting{
			RefID: withdrawalRef(withdrawal.ID),
			Note:  "withdrawal requested",
			Meta:  datatypes.JSONMap{"withdrawal_id": withdrawal.ID, "payment_method": method},
		})
		if errors.Is(err, database.ErrNotApplied) {
			current, _, ferr := findPartner(ctx, tx, req.Role, models.AccountQuery{ID: acct.AccountID()})
			if ferr != nil {
				return ferr
			}
			return &InsufficientBalanceError{Available: current.Balances().WithdrawableBalance}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawal_id": withdrawal.ID,
		"user_id":       req.UserID,
		"role":          req.Role,
		"amount":        amount.StringFixed(2),
	}).Info("withdrawal reserved")

	return withdrawal, nil
}

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApprove, ActionReject:
		return a, nil
	}
	return "", ErrInvalidAction
}

// Process moves a pending withdrawal to approved or rejected. Approval adds
// the amount to totalWithdrawn; rejection refunds it to the withdrawable
// balance. The status guard makes a second call fail with ErrAlreadyProcessed.
func (s *Withdrawals) Process(ctx context.Context, withdrawalID uint, action Action, adminID uint, reason string) (*models.Withdrawal, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, ErrInvalidAction
	}

	var withdrawal *models.Withdrawal
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		w, err := tx.FindWithdrawal(ctx, withdrawalID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWithdrawalNotFound
		}
		if err != nil {
			return fmt.Errorf("find withdrawal: %w", err)
		}
		if w.Status != models.WithdrawalPending {
			return ErrAlreadyProcessed
		}

		t := models.WithdrawalTransition{
			ProcessedAt: s.opts.Now(),
			ProcessedBy: adminID,
		}
		if action == ActionApprove {
			t.Status = models.WithdrawalApproved
			t.TransactionID = "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
		} else {
			t.Status = models.WithdrawalRejected
			t.RejectionReason = strings.TrimSpace(reason)
			if t.RejectionReason == "" {
				t.RejectionReason = defaultRejectionReason
			}
		}

		if err := tx.TransitionWithdrawal(ctx, w.ID, t); err != nil {
			if errors.Is(err, database.ErrNotApplied) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("transition withdrawal: %w", err)
		}

		_, book, err := findPartner(ctx, tx, w.UserRole, models.AccountQuery{UserID: w.UserID})
		if err != nil {
			return err
		}

		p := posting{
			RefID: withdrawalRef(w.ID),
			Meta:  datatypes.JSONMap{"withdrawal_id": w.ID, "admin_id": adminID},
		}
		if action == ActionApprove {
			p.Note = "withdrawal approved " + t.TransactionID
			err = book.Finalize(ctx, w.Amount, p)
		} else {
			p.Note = "withdrawal rejected: " + t.RejectionReason
			err = book.Release(ctx, w.Amount, p)
		}
		if err != nil {
			return err
		}

		t.Apply(w)
		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawal_id": withdrawal.ID,
		"status":        withdrawal.Status,
		"admin_id":      adminID,
		"amount":        withdrawal.Amount.StringFixed(2),
	}).Info("withdrawal processed")

	return withdrawal, nil
}

type WithdrawalQuery struct {
	UserID uint
	Role   models.Role
	Status string
	Page   int
	Limit  int
}

type WithdrawalList struct {
	Withdrawals []models.Withdrawal `json:"withdrawals"`
	Pagination  models.Pagination   `json:"pagination"`
}

// List returns withdrawals newest first. An empty Role or UserID lists across
// all partners, which is what the admin queue uses.
func (s *Withdrawals) List(ctx context.Context, q WithdrawalQuery) (*WithdrawalList, error) {
	status := models.WithdrawalStatus(strings.TrimSpace(q.Status))
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, ErrInvalidRole
	}
	page, limit := normalizePage(q.Page, q.Limit, 10)

	rows, total, err := s.store.ListWithdrawals(ctx, models.WithdrawalFilter{
		UserID: q.UserID,
		Role:   q.Role,
		Status: status,
		Page:   models.Page{Page: page, Limit: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	if rows == nil {
		rows = []models.Withdrawal{}
	}

	return &WithdrawalList{
		Withdrawals: rows,
		Pagination:  models.NewPagination(total, page, limit),
	}, nil
}

func withdrawalRef(id uint) string {
	return fmt.Sprintf("WD-%d", id)
}
