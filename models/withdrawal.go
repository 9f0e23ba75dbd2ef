package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected:
		return true
	}
	return false
}

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalApproved || s == WithdrawalRejected
}

const (
	PaymentBankTransfer = "bank_transfer"
	PaymentCrypto       = "crypto"
	PaymentEWallet      = "e_wallet"
)

// Withdrawal spells out the gorm.Model columns so created_at can take part in
// the (user_id, status, created_at) listing index.
type Withdrawal struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index:idx_withdrawal_user_status_created,priority:3"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	UserID          uint             `gorm:"index:idx_withdrawal_user_status_created,priority:1;not null" json:"user_id"`
	UserRole        Role             `gorm:"size:16;not null" json:"user_role"`
	Amount          decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"amount"`
	Status          WithdrawalStatus `gorm:"size:16;index:idx_withdrawal_user_status_created,priority:2;not null" json:"status"`
	PaymentMethod   string           `gorm:"size:32;not null" json:"payment_method"`
	PaymentDetails  string           `gorm:"type:text" json:"payment_details"`
	ProcessedAt     *time.Time       `json:"processed_at"`
	ProcessedBy     *uint            `json:"processed_by"`
	RejectionReason string           `gorm:"size:255" json:"rejection_reason"`
	TransactionID   string           `gorm:"size:64;index" json:"transaction_id"`
}

// WithdrawalTransition is written only while the row is still pending.
type WithdrawalTransition struct {
	Status          WithdrawalStatus
	ProcessedAt     time.Time
	ProcessedBy     uint
	RejectionReason string
	TransactionID   string
}

func (t WithdrawalTransition) Apply(w *Withdrawal) {
	at := t.ProcessedAt
	by := t.ProcessedBy
	w.Status = t.Status
	w.ProcessedAt = &at
	w.ProcessedBy = &by
	w.RejectionReason = t.RejectionReason
	w.TransactionID = t.TransactionID
}
