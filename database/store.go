package database

import (
	"context"
	"errors"
	"time"

	"partnerhub/models"

	"github.com/shopspring/decimal"
)

// ErrNotApplied is returned when a guarded update matched no row: the row is
// missing or no longer satisfies the guard (balance, status, first deposit).
var ErrNotApplied = errors.New("database: conditional update not applied")

// Missing rows are reported as gorm.ErrRecordNotFound and unique violations
// as gorm.ErrDuplicatedKey by every Store implementation.
type Store interface {
	// Transaction runs fn against a store bound to one transaction. Returning
	// an error from fn rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	AccountStore
	ActivityStore
	WithdrawalStore
	LedgerStore
}

type AccountStore interface {
	CreateAgent(ctx context.Context, agent *models.Agent) error
	CreateAffiliate(ctx context.Context, affiliate *models.Affiliate) error
	FindAgent(ctx context.Context, q models.AccountQuery) (*models.Agent, error)
	FindAffiliate(ctx context.Context, q models.AccountQuery) (*models.Affiliate, error)

	// IncrementAccount adds delta to the account fields in a single update.
	IncrementAccount(ctx context.Context, role models.Role, accountID uint, delta models.BalanceDelta) error
	// ReserveBalance subtracts amount from withdrawable_balance only if the
	// result stays non-negative; otherwise ErrNotApplied.
	ReserveBalance(ctx context.Context, role models.Role, accountID uint, amount decimal.Decimal) error
}

type ActivityStore interface {
	CreatePlayer(ctx context.Context, player *models.Player) error
	FindPlayer(ctx context.Context, id uint) (*models.Player, error)
	AddPlayerLoss(ctx context.Context, id uint, amount decimal.Decimal) error
	ListPlayers(ctx context.Context, f models.PlayerFilter) ([]models.Player, int64, error)
	CountPlayers(ctx context.Context, f models.PlayerFilter) (int64, error)
	// SetPlayerStatus moves a player from one status to another;
	// ErrNotApplied if it is not currently in from.
	SetPlayerStatus(ctx context.Context, id uint, from, to models.PlayerStatus) error

	CreateCommission(ctx context.Context, c *models.Commission) error
	FindCommission(ctx context.Context, id uint) (*models.Commission, error)
	// TransitionCommission moves a commission from one status to another;
	// ErrNotApplied if it is not currently in from.
	TransitionCommission(ctx context.Context, id uint, from, to models.CommissionStatus, at time.Time) error
	ListCommissions(ctx context.Context, f models.CommissionFilter) ([]models.Commission, int64, error)
	SumCommissions(ctx context.Context, f models.CommissionFilter) (decimal.Decimal, error)
	PendingCommissionsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Commission, error)
	DailyCommissions(ctx context.Context, agentID uint, since time.Time) ([]models.DailyTotal, error)

	CreateReferral(ctx context.Context, r *models.Referral) error
	FindReferral(ctx context.Context, id uint) (*models.Referral, error)
	// RecordFirstDeposit writes deposit fields only while first_deposit is
	// false; ErrNotApplied otherwise.
	RecordFirstDeposit(ctx context.Context, id uint, u models.FirstDepositUpdate) error
	ListReferrals(ctx context.Context, f models.ReferralFilter) ([]models.Referral, int64, error)
	SumReferralRevenue(ctx context.Context, affiliateID uint) (decimal.Decimal, error)
	DailyRegistrations(ctx context.Context, affiliateID uint, since time.Time) ([]models.DailyTotal, error)
	DailyDeposits(ctx context.Context, affiliateID uint, since time.Time) ([]models.DailyTotal, error)
}

type WithdrawalStore interface {
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	FindWithdrawal(ctx context.Context, id uint) (*models.Withdrawal, error)
	// TransitionWithdrawal applies t only while the row is pending;
	// ErrNotApplied otherwise.
	TransitionWithdrawal(ctx context.Context, id uint, t models.WithdrawalTransition) error
	ListWithdrawals(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, int64, error)
	CountWithdrawals(ctx context.Context, f models.WithdrawalFilter) (int64, error)
}

type LedgerStore interface {
	AppendLedger(ctx context.Context, e *models.LedgerEntry) error
	ListLedger(ctx context.Context, role models.Role, accountID uint) ([]models.LedgerEntry, error)
}
