package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Agent struct {
	gorm.Model

	UserID            uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	AgentCode         string          `gorm:"uniqueIndex;size:32" json:"agent_code"`
	SecretKey         string          `gorm:"size:128" json:"-"`
	CommissionRate    decimal.Decimal `gorm:"type:numeric(5,2);not null;default:10" json:"commission_rate"`
	TotalEarnings     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_earnings"`
	PendingCommission decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"pending_commission"`
	// withdrawable_balance >= 0 is enforced by the reservation update and a check constraint.
	WithdrawableBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_agents_withdrawable,withdrawable_balance >= 0" json:"withdrawable_balance"`
	TotalWithdrawn      decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_withdrawn"`
	TotalUsers          int64           `gorm:"not null;default:0" json:"total_users"`

	Players     []Player     `gorm:"foreignKey:AgentID" json:"-"`
	Commissions []Commission `gorm:"foreignKey:AgentID" json:"-"`
}

func (a *Agent) PartnerRole() Role   { return RoleAgent }
func (a *Agent) AccountID() uint     { return a.ID }
func (a *Agent) OwnerID() uint       { return a.UserID }
func (a *Agent) PartnerCode() string { return a.AgentCode }
func (a *Agent) Secret() string      { return a.SecretKey }

func (a *Agent) Balances() Balances {
	return Balances{
		TotalEarnings:       a.TotalEarnings,
		PendingCommission:   a.PendingCommission,
		WithdrawableBalance: a.WithdrawableBalance,
		TotalWithdrawn:      a.TotalWithdrawn,
	}
}
