package services

import (
	"context"
	"errors"
	"fmt"

	"partnerhub/database"
	"partnerhub/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// partnerAccount is the balance capability shared by agents and affiliates.
// Every method is one atomic increment plus one ledger entry on the store it
// was opened with, so callers wrap it in a transaction.
type partnerAccount interface {
	Role() models.Role
	ID() uint
	// Credit adds accrued earnings straight into the withdrawable balance.
	Credit(ctx context.Context, amount decimal.Decimal, p posting) error
	// Reserve debits the withdrawable balance if it covers amount.
	Reserve(ctx context.Context, amount decimal.Decimal, p posting) error
	// Release refunds a reservation.
	Release(ctx context.Context, amount decimal.Decimal, p posting) error
	// Finalize records a paid-out reservation in total withdrawn.
	Finalize(ctx context.Context, amount decimal.Decimal, p posting) error
}

type posting struct {
	RefID string
	Note  string
	Meta  datatypes.JSONMap
}

type account struct {
	tx   database.Store
	role models.Role
	id   uint
}

func (a *account) Role() models.Role { return a.role }
func (a *account) ID() uint          { return a.id }

func (a *account) apply(ctx context.Context, typ models.LedgerEntryType, amount decimal.Decimal, delta models.BalanceDelta, p posting) error {
	if err := a.tx.IncrementAccount(ctx, a.role, a.id, delta); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("increment %s %d: %w", a.role, a.id, err)
	}
	return a.record(ctx, typ, amount, p)
}

func (a *account) record(ctx context.Context, typ models.LedgerEntryType, amount decimal.Decimal, p posting) error {
	entry := &models.LedgerEntry{
		AccountRole: a.role,
		AccountID:   a.id,
		TrxType:     typ,
		Amount:      amount,
		RefID:       p.RefID,
		Note:        p.Note,
		Meta:        p.Meta,
	}
	if err := a.tx.AppendLedger(ctx, entry); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

func (a *account) Credit(ctx context.Context, amount decimal.Decimal, p posting) error {
	return a.apply(ctx, models.EntryAccrual, amount, models.BalanceDelta{
		TotalEarnings:       amount,
		WithdrawableBalance: amount,
	}, p)
}

func (a *account) Reserve(ctx context.Context, amount decimal.Decimal, p posting) error {
	if err := a.tx.ReserveBalance(ctx, a.role, a.id, amount); err != nil {
		return err
	}
	return a.record(ctx, models.EntryReserve, amount, p)
}

func (a *account) Release(ctx context.Context, amount decimal.Decimal, p posting) error {
	return a.apply(ctx, models.EntryRelease, amount, models.BalanceDelta{
		WithdrawableBalance: amount,
	}, p)
}

func (a *account) Finalize(ctx context.Context, amount decimal.Decimal, p posting) error {
	return a.apply(ctx, models.EntryFinalize, amount, models.BalanceDelta{
		TotalWithdrawn: amount,
	}, p)
}

// agentAccount adds the maturity stage: commissions are held in
// pendingCommission before they become withdrawable.
type agentAccount struct {
	account
}

func (a *agentAccount) Hold(ctx context.Context, amount decimal.Decimal, p posting) error {
	return a.apply(ctx, models.EntryHold, amount, models.BalanceDelta{
		TotalEarnings:     amount,
		PendingCommission: amount,
	}, p)
}

func (a *agentAccount) Mature(ctx context.Context, amount decimal.Decimal, p posting) error {
	return a.apply(ctx, models.EntryMature, amount, models.BalanceDelta{
		PendingCommission:   amount.Neg(),
		WithdrawableBalance: amount,
	}, p)
}

// Void reverses a held commission.
func (a *agentAccount) Void(ctx context.Context, amount decimal.Decimal, p posting) error {
	return a.apply(ctx, models.EntryVoid, amount, models.BalanceDelta{
		TotalEarnings:     amount.Neg(),
		PendingCommission: amount.Neg(),
	}, p)
}

type affiliateAccount struct {
	account
}

func newAgentAccount(tx database.Store, agent *models.Agent) *agentAccount {
	return &agentAccount{account{tx: tx, role: models.RoleAgent, id: agent.ID}}
}

func newAffiliateAccount(tx database.Store, affiliate *models.Affiliate) *affiliateAccount {
	return &affiliateAccount{account{tx: tx, role: models.RoleAffiliate, id: affiliate.ID}}
}

func findAgent(ctx context.Context, store database.Store, q models.AccountQuery) (*models.Agent, error) {
	agent, err := store.FindAgent(ctx, q)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find agent: %w", err)
	}
	return agent, nil
}

func findAffiliate(ctx context.Context, store database.Store, q models.AccountQuery) (*models.Affiliate, error) {
	affiliate, err := store.FindAffiliate(ctx, q)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find affiliate: %w", err)
	}
	return affiliate, nil
}

// findPartner loads the account row for role and wraps it in its capability.
func findPartner(ctx context.Context, store database.Store, role models.Role, q models.AccountQuery) (models.PartnerAccount, partnerAccount, error) {
	switch role {
	case models.RoleAgent:
		agent, err := findAgent(ctx, store, q)
		if err != nil {
			return nil, nil, err
		}
		return agent, newAgentAccount(store, agent), nil
	case models.RoleAffiliate:
		affiliate, err := findAffiliate(ctx, store, q)
		if err != nil {
			return nil, nil, err
		}
		return affiliate, newAffiliateAccount(store, affiliate), nil
	}
	return nil, nil, ErrInvalidRole
}
