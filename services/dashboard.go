package services

import (
	"context"
	"fmt"
	"time"

	"partnerhub/database"
	"partnerhub/models"

	"github.com/shopspring/decimal"
)

// Dashboard is the read path. Balances come from a single account row read,
// so a snapshot never observes half of a mutation.
type Dashboard struct {
	store database.Store
	opts  Options
}

type AccountSnapshot struct {
	Role        models.Role     `json:"role"`
	AccountID   uint            `json:"account_id"`
	UserID      uint            `json:"user_id"`
	PartnerCode string          `json:"partner_code"`
	Rate        decimal.Decimal `json:"rate"`
	models.Balances

	TotalUsers         int64 `json:"total_users,omitempty"`
	ActiveUsers        int64 `json:"active_users,omitempty"`
	TotalRegistrations int64 `json:"total_registrations,omitempty"`
	TotalDeposits      int64 `json:"total_deposits,omitempty"`
	PendingWithdrawals int64 `json:"pending_withdrawals"`
}

// Snapshot returns the current balances and counters of a partner.
func (d *Dashboard) Snapshot(ctx context.Context, role models.Role, userID uint) (*AccountSnapshot, error) {
	acct, _, err := findPartner(ctx, d.store, role, models.AccountQuery{UserID: userID})
	if err != nil {
		return nil, err
	}

	pending, err := d.store.CountWithdrawals(ctx, models.WithdrawalFilter{
		UserID: userID,
		Role:   role,
		Status: models.WithdrawalPending,
	})
	if err != nil {
		return nil, fmt.Errorf("count pending withdrawals: %w", err)
	}

	snap := &AccountSnapshot{
		Role:               role,
		AccountID:          acct.AccountID(),
		UserID:             acct.OwnerID(),
		PartnerCode:        acct.PartnerCode(),
		Balances:           acct.Balances(),
		PendingWithdrawals: pending,
	}
	switch a := acct.(type) {
	case *models.Agent:
		snap.Rate = a.CommissionRate
		snap.TotalUsers = a.TotalUsers
		active, err := d.store.CountPlayers(ctx, models.PlayerFilter{AgentID: a.ID, Status: models.PlayerActive})
		if err != nil {
			return nil, fmt.Errorf("count active players: %w", err)
		}
		snap.ActiveUsers = active
	case *models.Affiliate:
		snap.Rate = a.RevenueSharePercent
		snap.TotalRegistrations = a.TotalRegistrations
		snap.TotalDeposits = a.TotalDeposits
	}
	return snap, nil
}

type EarningsPoint struct {
	Date         string          `json:"date"`
	Earnings     decimal.Decimal `json:"earnings"`
	Transactions int64           `json:"transactions"`
}

type AgentDashboard struct {
	*AccountSnapshot
	GraphData []EarningsPoint `json:"graph_data"`
}

// windowStart returns the first UTC midnight of a window of days ending today.
func (d *Dashboard) windowStart() (time.Time, []string) {
	today := d.opts.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(d.opts.DashboardWindowDays - 1))
	days := make([]string, 0, d.opts.DashboardWindowDays)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		days = append(days, day.Format(time.DateOnly))
	}
	return start, days
}

func indexByDay(rows []models.DailyTotal) map[string]models.DailyTotal {
	out := make(map[string]models.DailyTotal, len(rows))
	for _, r := range rows {
		out[r.Day] = r
	}
	return out
}

func (d *Dashboard) Agent(ctx context.Context, userID uint) (*AgentDashboard, error) {
	snap, err := d.Snapshot(ctx, models.RoleAgent, userID)
	if err != nil {
		return nil, err
	}

	since, days := d.windowStart()
	rows, err := d.store.DailyCommissions(ctx, snap.AccountID, since)
	if err != nil {
		return nil, fmt.Errorf("daily commissions: %w", err)
	}
	byDay := indexByDay(rows)

	graph := make([]EarningsPoint, 0, len(days))
	for _, day := range days {
		p := EarningsPoint{Date: day, Earnings: decimal.Zero}
		if r, ok := byDay[day]; ok {
			p.Earnings = Round2(r.Total)
			p.Transactions = r.Count
		}
		graph = append(graph, p)
	}

	return &AgentDashboard{AccountSnapshot: snap, GraphData: graph}, nil
}

type ConversionPoint struct {
	Date          string          `json:"date"`
	Registrations int64           `json:"registrations"`
	Deposits      int64           `json:"deposits"`
	Revenue       decimal.Decimal `json:"revenue"`
}

type AffiliateDashboard struct {
	*AccountSnapshot
	ChartData []ConversionPoint `json:"chart_data"`
}

func (d *Dashboard) Affiliate(ctx context.Context, userID uint) (*AffiliateDashboard, error) {
	snap, err := d.Snapshot(ctx, models.RoleAffiliate, userID)
	if err != nil {
		return nil, err
	}

	since, days := d.windowStart()
	regs, err := d.store.DailyRegistrations(ctx, snap.AccountID, since)
	if err != nil {
		return nil, fmt.Errorf("daily registrations: %w", err)
	}
	deps, err := d.store.DailyDeposits(ctx, snap.AccountID, since)
	if err != nil {
		return nil, fmt.Errorf("daily deposits: %w", err)
	}
	regByDay, depByDay := indexByDay(regs), indexByDay(deps)

	chart := make([]ConversionPoint, 0, len(days))
	for _, day := range days {
		p := ConversionPoint{Date: day, Revenue: decimal.Zero}
		if r, ok := regByDay[day]; ok {
			p.Registrations = r.Count
		}
		if r, ok := depByDay[day]; ok {
			p.Deposits = r.Count
			p.Revenue = Round2(r.Total)
		}
		chart = append(chart, p)
	}

	return &AffiliateDashboard{AccountSnapshot: snap, ChartData: chart}, nil
}

type CommissionQuery struct {
	UserID uint
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

type CommissionList struct {
	Commissions []models.Commission `json:"commissions"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Pagination  models.Pagination   `json:"pagination"`
}

// Commissions lists an agent's commissions newest first with the sum of
// non-cancelled amounts over the same date range.
func (d *Dashboard) Commissions(ctx context.Context, q CommissionQuery) (*CommissionList, error) {
	agent, err := findAgent(ctx, d.store, models.AccountQuery{UserID: q.UserID})
	if err != nil {
		return nil, err
	}
	page, limit := normalizePage(q.Page, q.Limit, 20)
	f := models.CommissionFilter{
		AgentID: agent.ID,
		From:    q.From,
		To:      q.To,
		Page:    models.Page{Page: page, Limit: limit},
	}

	rows, total, err := d.store.ListCommissions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	sum, err := d.store.SumCommissions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("sum commissions: %w", err)
	}
	if rows == nil {
		rows = []models.Commission{}
	}

	return &CommissionList{
		Commissions: rows,
		TotalAmount: Round2(sum),
		Pagination:  models.NewPagination(total, page, limit),
	}, nil
}

type EarningsList struct {
	Earnings            []models.Referral `json:"earnings"`
	TotalRevenue        decimal.Decimal   `json:"total_revenue"`
	RevenueSharePercent decimal.Decimal   `json:"revenue_share_percent"`
	Pagination          models.Pagination `json:"pagination"`
}

// Earnings lists the referrals that generated revenue for an affiliate.
func (d *Dashboard) Earnings(ctx context.Context, userID uint, page, limit int) (*EarningsList, error) {
	affiliate, err := findAffiliate(ctx, d.store, models.AccountQuery{UserID: userID})
	if err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit, 20)

	rows, total, err := d.store.ListReferrals(ctx, models.ReferralFilter{
		AffiliateID: affiliate.ID,
		WithRevenue: true,
		Page:        models.Page{Page: page, Limit: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	sum, err := d.store.SumReferralRevenue(ctx, affiliate.ID)
	if err != nil {
		return nil, fmt.Errorf("sum referral revenue: %w", err)
	}
	if rows == nil {
		rows = []models.Referral{}
	}

	return &EarningsList{
		Earnings:            rows,
		TotalRevenue:        Round2(sum),
		RevenueSharePercent: affiliate.RevenueSharePercent,
		Pagination:          models.NewPagination(total, page, limit),
	}, nil
}
