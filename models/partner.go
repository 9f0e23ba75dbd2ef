package models

import (
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAgent     Role = "agent"
	RoleAffiliate Role = "affiliate"
)

func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleAffiliate
}

// PartnerAccount is the part of an Agent or Affiliate row the withdrawal
// flow and the HTTP layer rely on.
type PartnerAccount interface {
	PartnerRole() Role
	AccountID() uint
	OwnerID() uint
	PartnerCode() string
	Secret() string
	Balances() Balances
}

type Balances struct {
	TotalEarnings       decimal.Decimal `json:"total_earnings"`
	PendingCommission   decimal.Decimal `json:"pending_commission"`
	WithdrawableBalance decimal.Decimal `json:"withdrawable_balance"`
	TotalWithdrawn      decimal.Decimal `json:"total_withdrawn"`
}

// BalanceDelta is applied as "field = field + delta" for every non-zero field.
type BalanceDelta struct {
	TotalEarnings       decimal.Decimal
	PendingCommission   decimal.Decimal
	WithdrawableBalance decimal.Decimal
	TotalWithdrawn      decimal.Decimal

	TotalUsers         int64
	TotalRegistrations int64
	TotalDeposits      int64
}

func (d BalanceDelta) IsZero() bool {
	return d.TotalEarnings.IsZero() && d.PendingCommission.IsZero() &&
		d.WithdrawableBalance.IsZero() && d.TotalWithdrawn.IsZero() &&
		d.TotalUsers == 0 && d.TotalRegistrations == 0 && d.TotalDeposits == 0
}

// Columns maps the non-zero fields of d to their column names.
func (d BalanceDelta) Columns() map[string]any {
	cols := make(map[string]any)
	if !d.TotalEarnings.IsZero() {
		cols["total_earnings"] = d.TotalEarnings
	}
	if !d.PendingCommission.IsZero() {
		cols["pending_commission"] = d.PendingCommission
	}
	if !d.WithdrawableBalance.IsZero() {
		cols["withdrawable_balance"] = d.WithdrawableBalance
	}
	if !d.TotalWithdrawn.IsZero() {
		cols["total_withdrawn"] = d.TotalWithdrawn
	}
	if d.TotalUsers != 0 {
		cols["total_users"] = d.TotalUsers
	}
	if d.TotalRegistrations != 0 {
		cols["total_registrations"] = d.TotalRegistrations
	}
	if d.TotalDeposits != 0 {
		cols["total_deposits"] = d.TotalDeposits
	}
	return cols
}

// AccountQuery selects a single partner account. The first non-empty key wins,
// in the order ID, UserID, Code.
type AccountQuery struct {
	ID     uint
	UserID uint
	Code   string
}
