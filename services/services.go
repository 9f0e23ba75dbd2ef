package services

import (
	"time"

	"partnerhub/database"

	"github.com/shopspring/decimal"
)

// Options left at their zero value take the built-in defaults.
type Options struct {
	MinWithdrawal         decimal.Decimal
	CommissionMaturity    time.Duration
	DefaultCommissionRate decimal.Decimal
	DefaultRevenueShare   decimal.Decimal
	DashboardWindowDays   int
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MinWithdrawal.IsZero() {
		o.MinWithdrawal = decimal.NewFromInt(10)
	}
	if o.DefaultCommissionRate.IsZero() {
		o.DefaultCommissionRate = decimal.NewFromInt(10)
	}
	if o.DefaultRevenueShare.IsZero() {
		o.DefaultRevenueShare = decimal.NewFromInt(25)
	}
	if o.DashboardWindowDays <= 0 {
		o.DashboardWindowDays = 7
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Services bundles the partner balance operations over one store.
type Services struct {
	Accounts    *Accounts
	Accrual     *Accrual
	Withdrawals *Withdrawals
	Dashboard   *Dashboard
}

func New(store database.Store, opts Options) *Services {
	opts = opts.withDefaults()
	return &Services{
		Accounts:    &Accounts{store: store, opts: opts},
		Accrual:     &Accrual{store: store, opts: opts},
		Withdrawals: &Withdrawals{store: store, opts: opts},
		Dashboard:   &Dashboard{store: store, opts: opts},
	}
}

func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
