package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LedgerEntryType string

const (
	EntryAccrual  LedgerEntryType = "ACCRUAL"
	EntryHold     LedgerEntryType = "HOLD"
	EntryMature   LedgerEntryType = "MATURE"
	EntryVoid     LedgerEntryType = "VOID"
	EntryReserve  LedgerEntryType = "RESERVE"
	EntryRelease  LedgerEntryType = "RELEASE"
	EntryFinalize LedgerEntryType = "FINALIZE"
)

// LedgerEntry is an append-only trail of every balance mutation.
type LedgerEntry struct {
	gorm.Model

	AccountRole Role              `gorm:"size:16;index:idx_ledger_account;not null" json:"account_role"`
	AccountID   uint              `gorm:"index:idx_ledger_account;not null" json:"account_id"`
	TrxType     LedgerEntryType   `gorm:"size:16;not null" json:"trx_type"`
	Amount      decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"amount"`
	RefID       string            `gorm:"size:64;index" json:"ref_id"`
	Note        string            `gorm:"size:255" json:"note"`
	Meta        datatypes.JSONMap `json:"meta"`
}
