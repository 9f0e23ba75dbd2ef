package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "active"
	PlayerBlocked  PlayerStatus = "blocked"
	PlayerInactive PlayerStatus = "inactive"
)

func (s PlayerStatus) Valid() bool {
	switch s {
	case PlayerActive, PlayerBlocked, PlayerInactive:
		return true
	}
	return false
}

// Toggled is the status an agent's block/unblock switch moves to.
func (s PlayerStatus) Toggled() PlayerStatus {
	if s == PlayerActive {
		return PlayerBlocked
	}
	return PlayerActive
}

type Player struct {
	gorm.Model

	AgentID   uint            `gorm:"index:idx_player_agent_status;not null" json:"agent_id"`
	Name      string          `gorm:"size:128" json:"name"`
	Email     string          `gorm:"uniqueIndex;size:255" json:"email"`
	Status    PlayerStatus    `gorm:"size:16;index:idx_player_agent_status;not null;default:active" json:"status"`
	TotalLost decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_lost"`
}
