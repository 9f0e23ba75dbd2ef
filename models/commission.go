package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionCredited  CommissionStatus = "credited"
	CommissionCancelled CommissionStatus = "cancelled"
)

type Commission struct {
	gorm.Model

	AgentID  uint `gorm:"index:idx_commission_agent_date;index:idx_commission_ref,unique;not null" json:"agent_id"`
	PlayerID uint `gorm:"index;not null" json:"player_id"`
	// ExternalRef identifies the upstream loss event; a redelivered event hits the unique index.
	ExternalRef    string           `gorm:"size:64;index:idx_commission_ref,unique" json:"external_ref"`
	PlayerLoss     decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"player_loss"`
	CommissionRate decimal.Decimal  `gorm:"type:numeric(5,2);not null" json:"commission_rate"`
	Amount         decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"amount"`
	Status         CommissionStatus `gorm:"size:16;index;not null" json:"status"`
	Date           time.Time        `gorm:"index:idx_commission_agent_date;not null" json:"date"`
	CreditedAt     *time.Time       `json:"credited_at"`
	Description    string           `gorm:"size:255" json:"description"`
}
