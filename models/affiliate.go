package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Affiliate struct {
	gorm.Model

	UserID              uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	ReferralCode        string          `gorm:"uniqueIndex;size:32" json:"referral_code"`
	SecretKey           string          `gorm:"size:128" json:"-"`
	RevenueSharePercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:25" json:"revenue_share_percent"`
	TotalRegistrations  int64           `gorm:"not null;default:0" json:"total_registrations"`
	TotalDeposits       int64           `gorm:"not null;default:0" json:"total_deposits"`
	TotalEarnings       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_earnings"`
	WithdrawableBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_affiliates_withdrawable,withdrawable_balance >= 0" json:"withdrawable_balance"`
	TotalWithdrawn      decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_withdrawn"`

	Referrals []Referral `gorm:"foreignKey:AffiliateID" json:"-"`
}

func (a *Affiliate) PartnerRole() Role   { return RoleAffiliate }
func (a *Affiliate) AccountID() uint     { return a.ID }
func (a *Affiliate) OwnerID() uint       { return a.UserID }
func (a *Affiliate) PartnerCode() string { return a.ReferralCode }
func (a *Affiliate) Secret() string      { return a.SecretKey }

// Balances reports a zero PendingCommission: affiliate revenue has no
// maturity window and is withdrawable as soon as it is accrued.
func (a *Affiliate) Balances() Balances {
	return Balances{
		TotalEarnings:       a.TotalEarnings,
		PendingCommission:   decimal.Zero,
		WithdrawableBalance: a.WithdrawableBalance,
		TotalWithdrawn:      a.TotalWithdrawn,
	}
}
