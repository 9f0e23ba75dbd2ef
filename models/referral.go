package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReferralStatus string

const (
	ReferralRegistered ReferralStatus = "registered"
	ReferralDeposited  ReferralStatus = "deposited"
)

type Referral struct {
	gorm.Model

	AffiliateID      uint            `gorm:"index:idx_referral_affiliate_registered;not null" json:"affiliate_id"`
	ReferralCode     string          `gorm:"size:32;index" json:"referral_code"`
	PlayerName       string          `gorm:"size:128" json:"player_name"`
	Email            string          `gorm:"size:255;uniqueIndex" json:"email"`
	RegisteredAt     time.Time       `gorm:"index:idx_referral_affiliate_registered;not null" json:"registered_at"`
	FirstDeposit     bool            `gorm:"not null;default:false" json:"first_deposit"`
	DepositAmount    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"deposit_amount"`
	DepositAt        *time.Time      `gorm:"index" json:"deposit_at"`
	RevenueGenerated decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"revenue_generated"`
	Status           ReferralStatus  `gorm:"size:16;not null" json:"status"`
}

// FirstDepositUpdate carries the fields written when a referral deposits.
type FirstDepositUpdate struct {
	Amount  decimal.Decimal
	Revenue decimal.Decimal
	At      time.Time
}
