package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"partnerhub/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MemoryStore keeps every table in process behind one mutex. A transaction
// holds the mutex for its whole duration and restores a snapshot on error.
type MemoryStore struct {
	mu   *sync.Mutex
	d    *memData
	inTx bool
	now  func() time.Time
}

var _ Store = (*MemoryStore)(nil)

type memData struct {
	seq         map[string]uint
	agents      map[uint]models.Agent
	affiliates  map[uint]models.Affiliate
	players     map[uint]models.Player
	commissions map[uint]models.Commission
	referrals   map[uint]models.Referral
	withdrawals map[uint]models.Withdrawal
	ledger      []models.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		d: &memData{
			seq:         make(map[string]uint),
			agents:      make(map[uint]models.Agent),
			affiliates:  make(map[uint]models.Affiliate),
			players:     make(map[uint]models.Player),
			commissions: make(map[uint]models.Commission),
			referrals:   make(map[uint]models.Referral),
			withdrawals: make(map[uint]models.Withdrawal),
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used for CreatedAt/UpdatedAt.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

func (d *memData) clone() *memData {
	c := &memData{
		seq:         make(map[string]uint, len(d.seq)),
		agents:      make(map[uint]models.Agent, len(d.agents)),
		affiliates:  make(map[uint]models.Affiliate, len(d.affiliates)),
		players:     make(map[uint]models.Player, len(d.players)),
		commissions: make(map[uint]models.Commission, len(d.commissions)),
		referrals:   make(map[uint]models.Referral, len(d.referrals)),
		withdrawals: make(map[uint]models.Withdrawal, len(d.withdrawals)),
		ledger:      append([]models.LedgerEntry(nil), d.ledger...),
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	for k, v := range d.agents {
		c.agents[k] = v
	}
	for k, v := range d.affiliates {
		c.affiliates[k] = v
	}
	for k, v := range d.players {
		c.players[k] = v
	}
	for k, v := range d.commissions {
		c.commissions[k] = v
	}
	for k, v := range d.referrals {
		c.referrals[k] = v
	}
	for k, v := range d.withdrawals {
		c.withdrawals[k] = v
	}
	return c
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) nextID(table string) uint {
	s.d.seq[table]++
	return s.d.seq[table]
}

func (s *MemoryStore) stamp(m *gorm.Model, table string) {
	now := s.now()
	m.ID = s.nextID(table)
	m.CreatedAt = now
	m.UpdatedAt = now
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	tx := &MemoryStore{mu: s.mu, d: s.d, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	defer s.lock()()
	for _, a := range s.d.agents {
		if a.UserID == agent.UserID || a.AgentCode == agent.AgentCode {
			return gorm.ErrDuplicatedKey
		}
	}
	s.stamp(&agent.Model, "agents")
	s.d.agents[agent.ID] = *agent
	return nil
}

func (s *MemoryStore) CreateAffiliate(ctx context.Context, affiliate *models.Affiliate) error {
	defer s.lock()()
	for _, a := range s.d.affiliates {
		if a.UserID == affiliate.UserID || a.ReferralCode == affiliate.ReferralCode {
			return gorm.ErrDuplicatedKey
		}
	}
	s.stamp(&affiliate.Model, "affiliates")
	s.d.affiliates[affiliate.ID] = *affiliate
	return nil
}

func (s *MemoryStore) FindAgent(ctx context.Context, q models.AccountQuery) (*models.Agent, error) {
	defer s.lock()()
	for _, a := range s.d.agents {
		if matchAccount(q, a.ID, a.UserID, a.AgentCode) {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *MemoryStore) FindAffiliate(ctx context.Context, q models.AccountQuery) (*models.Affiliate, error) {
	defer s.lock()()
	for _, a := range s.d.affiliates {
		if matchAccount(q, a.ID, a.UserID, a.ReferralCode) {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func matchAccount(q models.AccountQuery, id, userID uint, code string) bool {
	switch {
	case q.ID != 0:
		return q.ID == id
	case q.UserID != 0:
		return q.UserID == userID
	case q.Code != "":
		return q.Code == code
	}
	return false
}

func (s *MemoryStore) IncrementAccount(ctx context.Context, role models.Role, accountID uint, delta models.BalanceDelta) error {
	defer s.lock()()
	now := s.now()

	switch role {
	case models.RoleAgent:
		a, ok := s.d.agents[accountID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		a.TotalEarnings = a.TotalEarnings.Add(delta.TotalEarnings)
		a.PendingCommission = a.PendingCommission.Add(delta.PendingCommission)
		a.WithdrawableBalance = a.WithdrawableBalance.Add(delta.WithdrawableBalance)
		a.TotalWithdrawn = a.TotalWithdrawn.Add(delta.TotalWithdrawn)
		a.TotalUsers += delta.TotalUsers
		if a.WithdrawableBalance.IsNegative() {
			return fmt.Errorf("agent %d: withdrawable balance would become negative", accountID)
		}
		a.UpdatedAt = now
		s.d.agents[accountID] = a
	case models.RoleAffiliate:
		if !delta.PendingCommission.IsZero() {
			return fmt.Errorf("affiliate accounts have no pending commission")
		}
		a, ok := s.d.affiliates[accountID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		a.TotalEarnings = a.TotalEarnings.Add(delta.TotalEarnings)
		a.WithdrawableBalance = a.WithdrawableBalance.Add(delta.WithdrawableBalance)
		a.TotalWithdrawn = a.TotalWithdrawn.Add(delta.TotalWithdrawn)
		a.TotalRegistrations += delta.TotalRegistrations
		a.TotalDeposits += delta.TotalDeposits
		if a.WithdrawableBalance.IsNegative() {
			return fmt.Errorf("affiliate %d: withdrawable balance would become negative", accountID)
		}
		a.UpdatedAt = now
		s.d.affiliates[accountID] = a
	default:
		return fmt.Errorf("unknown partner role %q", role)
	}
	return nil
}

func (s *MemoryStore) ReserveBalance(ctx context.Context, role models.Role, accountID uint, amount decimal.Decimal) error {
	defer s.lock()()
	now := s.now()

	switch role {
	case models.RoleAgent:
		a, ok := s.d.agents[accountID]
		if !ok || a.WithdrawableBalance.LessThan(amount) {
			return ErrNotApplied
		}
		a.WithdrawableBalance = a.WithdrawableBalance.Sub(amount)
		a.UpdatedAt = now
		s.d.agents[accountID] = a
	case models.RoleAffiliate:
		a, ok := s.d.affiliates[accountID]
		if !ok || a.WithdrawableBalance.LessThan(amount) {
			return ErrNotApplied
		}
		a.WithdrawableBalance = a.WithdrawableBalance.Sub(amount)
		a.UpdatedAt = now
		s.d.affiliates[accountID] = a
	default:
		return fmt.Errorf("unknown partner role %q", role)
	}
	return nil
}

func (s *MemoryStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	defer s.lock()()
	for _, p := range s.d.players {
		if p.Email == player.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if player.Status == "" {
		player.Status = models.PlayerActive
	}
	s.stamp(&player.Model, "players")
	s.d.players[player.ID] = *player
	return nil
}

func (s *MemoryStore) FindPlayer(ctx context.Context, id uint) (*models.Player, error) {
	defer s.lock()()
	p, ok := s.d.players[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *MemoryStore) AddPlayerLoss(ctx context.Context, id uint, amount decimal.Decimal) error {
	defer s.lock()()
	p, ok := s.d.players[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.TotalLost = p.TotalLost.Add(amount)
	p.UpdatedAt = s.now()
	s.d.players[id] = p
	return nil
}

func (s *MemoryStore) filterPlayers(f models.PlayerFilter) []models.Player {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var rows []models.Player
	for _, p := range s.d.players {
		if p.AgentID != f.AgentID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Email), search) {
			continue
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows
}

func (s *MemoryStore) ListPlayers(ctx context.Context, f models.PlayerFilter) ([]models.Player, int64, error) {
	defer s.lock()()
	rows := s.filterPlayers(f)
	return paginate(rows, f.Page), int64(len(rows)), nil
}

func (s *MemoryStore) CountPlayers(ctx context.Context, f models.PlayerFilter) (int64, error) {
	defer s.lock()()
	return int64(len(s.filterPlayers(f))), nil
}

func (s *MemoryStore) SetPlayerStatus(ctx context.Context, id uint, from, to models.PlayerStatus) error {
	defer s.lock()()
	p, ok := s.d.players[id]
	if !ok || p.Status != from {
		return ErrNotApplied
	}
	p.Status = to
	p.UpdatedAt = s.now()
	s.d.players[id] = p
	return nil
}

func (s *MemoryStore) CreateCommission(ctx context.Context, c *models.Commission) error {
	defer s.lock()()
	for _, existing := range s.d.commissions {
		if existing.AgentID == c.AgentID && existing.ExternalRef == c.ExternalRef {
			return gorm.ErrDuplicatedKey
		}
	}
	s.stamp(&c.Model, "commissions")
	s.d.commissions[c.ID] = *c
	return nil
}

func (s *MemoryStore) FindCommission(ctx context.Context, id uint) (*models.Commission, error) {
	defer s.lock()()
	c, ok := s.d.commissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (s *MemoryStore) TransitionCommission(ctx context.Context, id uint, from, to models.CommissionStatus, at time.Time) error {
	defer s.lock()()
	c, ok := s.d.commissions[id]
	if !ok || c.Status != from {
		return ErrNotApplied
	}
	c.Status = to
	if to == models.CommissionCredited {
		credited := at
		c.CreditedAt = &credited
	}
	c.UpdatedAt = s.now()
	s.d.commissions[id] = c
	return nil
}

func (s *MemoryStore) filterCommissions(f models.CommissionFilter) []models.Commission {
	var rows []models.Commission
	for _, c := range s.d.commissions {
		if c.AgentID != f.AgentID {
			continue
		}
		if f.PlayerID != 0 && c.PlayerID != f.PlayerID {
			continue
		}
		if f.From != nil && c.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && c.Date.After(*f.To) {
			continue
		}
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date.Equal(rows[j].Date) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].Date.After(rows[j].Date)
	})
	return rows
}

func (s *MemoryStore) ListCommissions(ctx context.Context, f models.CommissionFilter) ([]models.Commission, int64, error) {
	defer s.lock()()
	rows := s.filterCommissions(f)
	return paginate(rows, f.Page), int64(len(rows)), nil
}

func (s *MemoryStore) SumCommissions(ctx context.Context, f models.CommissionFilter) (decimal.Decimal, error) {
	defer s.lock()()
	sum := decimal.Zero
	for _, c := range s.filterCommissions(f) {
		if c.Status != models.CommissionCancelled {
			sum = sum.Add(c.Amount)
		}
	}
	return sum, nil
}

func (s *MemoryStore) PendingCommissionsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Commission, error) {
	defer s.lock()()
	var rows []models.Commission
	for _, c := range s.d.commissions {
		if c.Status == models.CommissionPending && !c.Date.After(cutoff) {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date.Equal(rows[j].Date) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].Date.Before(rows[j].Date)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemoryStore) DailyCommissions(ctx context.Context, agentID uint, since time.Time) ([]models.DailyTotal, error) {
	defer s.lock()()
	g := newDayGrouper()
	for _, c := range s.d.commissions {
		if c.AgentID == agentID && !c.Date.Before(since) && c.Status != models.CommissionCancelled {
			g.add(c.Date, c.Amount)
		}
	}
	return g.rows(), nil
}

func (s *MemoryStore) CreateReferral(ctx context.Context, r *models.Referral) error {
	defer s.lock()()
	for _, existing := range s.d.referrals {
		if existing.Email == r.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	s.stamp(&r.Model, "referrals")
	s.d.referrals[r.ID] = *r
	return nil
}

func (s *MemoryStore) FindReferral(ctx context.Context, id uint) (*models.Referral, error) {
	defer s.lock()()
	r, ok := s.d.referrals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (s *MemoryStore) RecordFirstDeposit(ctx context.Context, id uint, u models.FirstDepositUpdate) error {
	defer s.lock()()
	r, ok := s.d.referrals[id]
	if !ok || r.FirstDeposit {
		return ErrNotApplied
	}
	at := u.At
	r.FirstDeposit = true
	r.DepositAmount = u.Amount
	r.DepositAt = &at
	r.RevenueGenerated = u.Revenue
	r.Status = models.ReferralDeposited
	r.UpdatedAt = s.now()
	s.d.referrals[id] = r
	return nil
}

func (s *MemoryStore) ListReferrals(ctx context.Context, f models.ReferralFilter) ([]models.Referral, int64, error) {
	defer s.lock()()
	var rows []models.Referral
	for _, r := range s.d.referrals {
		if r.AffiliateID != f.AffiliateID {
			continue
		}
		if f.WithRevenue && !r.RevenueGenerated.IsPositive() {
			continue
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.DepositAt != nil && b.DepositAt == nil:
			return true
		case a.DepositAt == nil && b.DepositAt != nil:
			return false
		case a.DepositAt != nil && !a.DepositAt.Equal(*b.DepositAt):
			return a.DepositAt.After(*b.DepositAt)
		}
		return a.RegisteredAt.After(b.RegisteredAt)
	})
	return paginate(rows, f.Page), int64(len(rows)), nil
}

func (s *MemoryStore) SumReferralRevenue(ctx context.Context, affiliateID uint) (decimal.Decimal, error) {
	defer s.lock()()
	sum := decimal.Zero
	for _, r := range s.d.referrals {
		if r.AffiliateID == affiliateID {
			sum = sum.Add(r.RevenueGenerated)
		}
	}
	return sum, nil
}

func (s *MemoryStore) DailyRegistrations(ctx context.Context, affiliateID uint, since time.Time) ([]models.DailyTotal, error) {
	defer s.lock()()
	g := newDayGrouper()
	for _, r := range s.d.referrals {
		if r.AffiliateID == affiliateID && !r.RegisteredAt.Before(since) {
			g.add(r.RegisteredAt, decimal.Zero)
		}
	}
	return g.rows(), nil
}

func (s *MemoryStore) DailyDeposits(ctx context.Context, affiliateID uint, since time.Time) ([]models.DailyTotal, error) {
	defer s.lock()()
	g := newDayGrouper()
	for _, r := range s.d.referrals {
		if r.AffiliateID == affiliateID && r.FirstDeposit && r.DepositAt != nil && !r.DepositAt.Before(since) {
			g.add(*r.DepositAt, r.RevenueGenerated)
		}
	}
	return g.rows(), nil
}

func (s *MemoryStore) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	defer s.lock()()
	now := s.now()
	w.ID = s.nextID("withdrawals")
	w.CreatedAt = now
	w.UpdatedAt = now
	s.d.withdrawals[w.ID] = *w
	return nil
}

func (s *MemoryStore) FindWithdrawal(ctx context.Context, id uint) (*models.Withdrawal, error) {
	defer s.lock()()
	w, ok := s.d.withdrawals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &w, nil
}

func (s *MemoryStore) TransitionWithdrawal(ctx context.Context, id uint, t models.WithdrawalTransition) error {
	defer s.lock()()
	w, ok := s.d.withdrawals[id]
	if !ok || w.Status != models.WithdrawalPending {
		return ErrNotApplied
	}
	t.Apply(&w)
	w.UpdatedAt = s.now()
	s.d.withdrawals[id] = w
	return nil
}

func (s *MemoryStore) filterWithdrawals(f models.WithdrawalFilter) []models.Withdrawal {
	var rows []models.Withdrawal
	for _, w := range s.d.withdrawals {
		if f.UserID != 0 && w.UserID != f.UserID {
			continue
		}
		if f.Role != "" && w.UserRole != f.Role {
			continue
		}
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		rows = append(rows, w)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows
}

func (s *MemoryStore) ListWithdrawals(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, int64, error) {
	defer s.lock()()
	rows := s.filterWithdrawals(f)
	return paginate(rows, f.Page), int64(len(rows)), nil
}

func (s *MemoryStore) CountWithdrawals(ctx context.Context, f models.WithdrawalFilter) (int64, error) {
	defer s.lock()()
	return int64(len(s.filterWithdrawals(f))), nil
}

func (s *MemoryStore) AppendLedger(ctx context.Context, e *models.LedgerEntry) error {
	defer s.lock()()
	s.stamp(&e.Model, "ledger_entries")
	s.d.ledger = append(s.d.ledger, *e)
	return nil
}

func (s *MemoryStore) ListLedger(ctx context.Context, role models.Role, accountID uint) ([]models.LedgerEntry, error) {
	defer s.lock()()
	var rows []models.LedgerEntry
	for _, e := range s.d.ledger {
		if e.AccountRole == role && e.AccountID == accountID {
			rows = append(rows, e)
		}
	}
	return rows, nil
}

func paginate[T any](rows []T, p models.Page) []T {
	if p.Limit <= 0 {
		return rows
	}
	start := p.Offset()
	if start >= len(rows) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

type dayGrouper struct {
	totals map[string]*models.DailyTotal
}

func newDayGrouper() *dayGrouper {
	return &dayGrouper{totals: make(map[string]*models.DailyTotal)}
}

func (g *dayGrouper) add(at time.Time, amount decimal.Decimal) {
	day := at.UTC().Format(time.DateOnly)
	t, ok := g.totals[day]
	if !ok {
		t = &models.DailyTotal{Day: day, Total: decimal.Zero}
		g.totals[day] = t
	}
	t.Total = t.Total.Add(amount)
	t.Count++
}

func (g *dayGrouper) rows() []models.DailyTotal {
	out := make([]models.DailyTotal, 0, len(g.totals))
	for _, t := range g.totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
