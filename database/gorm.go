package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"partnerhub/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
	// inTx makes row reads take FOR UPDATE locks.
	inTx bool
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

// forUpdate locks the rows it reads until the surrounding transaction ends.
func (s *GormStore) forUpdate(ctx context.Context) *gorm.DB {
	tx := s.db.WithContext(ctx)
	if s.inTx {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func accountModel(role models.Role) (any, error) {
	switch role {
	case models.RoleAgent:
		return &models.Agent{}, nil
	case models.RoleAffiliate:
		return &models.Affiliate{}, nil
	}
	return nil, fmt.Errorf("unknown partner role %q", role)
}

func codeColumn(role models.Role) string {
	if role == models.RoleAffiliate {
		return "referral_code"
	}
	return "agent_code"
}

func (s *GormStore) findAccount(ctx context.Context, role models.Role, q models.AccountQuery, dest any) error {
	tx := s.db.WithContext(ctx)
	switch {
	case q.ID != 0:
		tx = tx.Where("id = ?", q.ID)
	case q.UserID != 0:
		tx = tx.Where("user_id = ?", q.UserID)
	case q.Code != "":
		tx = tx.Where(codeColumn(role)+" = ?", q.Code)
	default:
		return gorm.ErrRecordNotFound
	}
	return tx.First(dest).Error
}

func (s *GormStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	return s.db.WithContext(ctx).Create(agent).Error
}

func (s *GormStore) CreateAffiliate(ctx context.Context, affiliate *models.Affiliate) error {
	return s.db.WithContext(ctx).Create(affiliate).Error
}

func (s *GormStore) FindAgent(ctx context.Context, q models.AccountQuery) (*models.Agent, error) {
	var agent models.Agent
	if err := s.findAccount(ctx, models.RoleAgent, q, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *GormStore) FindAffiliate(ctx context.Context, q models.AccountQuery) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := s.findAccount(ctx, models.RoleAffiliate, q, &affiliate); err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (s *GormStore) IncrementAccount(ctx context.Context, role models.Role, accountID uint, delta models.BalanceDelta) error {
	model, err := accountModel(role)
	if err != nil {
		return err
	}
	if role == models.RoleAffiliate && !delta.PendingCommission.IsZero() {
		return fmt.Errorf("affiliate accounts have no pending commission")
	}

	updates := make(map[string]any)
	for col, v := range delta.Columns() {
		updates[col] = gorm.Expr(col+" + ?", v)
	}
	if len(updates) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(model).Where("id = ?", accountID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) ReserveBalance(ctx context.Context, role models.Role, accountID uint, amount decimal.Decimal) error {
	model, err := accountModel(role)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(model).
		Where("id = ? AND withdrawable_balance >= ?", accountID, amount).
		Update("withdrawable_balance", gorm.Expr("withdrawable_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

func (s *GormStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	return s.db.WithContext(ctx).Create(player).Error
}

func (s *GormStore) FindPlayer(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := s.forUpdate(ctx).First(&player, id).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *GormStore) AddPlayerLoss(ctx context.Context, id uint, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Player{}).Where("id = ?", id).
		Update("total_lost", gorm.Expr("total_lost + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) playerScope(ctx context.Context, f models.PlayerFilter) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Player{}).Where("agent_id = ?", f.AgentID)
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + escapeLike(search) + "%"
		tx = tx.Where("(name ILIKE ? OR email ILIKE ?)", like, like)
	}
	return tx
}

// escapeLike makes the LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func (s *GormStore) ListPlayers(ctx context.Context, f models.PlayerFilter) ([]models.Player, int64, error) {
	var total int64
	if err := s.playerScope(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Player
	err := s.playerScope(ctx, f).
		Order("created_at DESC, id DESC").
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&rows).Error
	return rows, total, err
}

func (s *GormStore) CountPlayers(ctx context.Context, f models.PlayerFilter) (int64, error) {
	var total int64
	err := s.playerScope(ctx, f).Count(&total).Error
	return total, err
}

func (s *GormStore) SetPlayerStatus(ctx context.Context, id uint, from, to models.PlayerStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Player{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

func (s *GormStore) CreateCommission(ctx context.Context, c *models.Commission) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) FindCommission(ctx context.Context, id uint) (*models.Commission, error) {
	var c models.Commission
	if err := s.forUpdate(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) TransitionCommission(ctx context.Context, id uint, from, to models.CommissionStatus, at time.Time) error {
	updates := map[string]any{"status": to}
	if to == models.CommissionCredited {
		updates["credited_at"] = at
	}

	res := s.db.WithContext(ctx).Model(&models.Commission{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

func (s *GormStore) commissionScope(ctx context.Context, f models.CommissionFilter) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Commission{}).Where("agent_id = ?", f.AgentID)
	if f.PlayerID != 0 {
		tx = tx.Where("player_id = ?", f.PlayerID)
	}
	if f.From != nil {
		tx = tx.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		tx = tx.Where("date <= ?", *f.To)
	}
	return tx
}

func (s *GormStore) ListCommissions(ctx context.Context, f models.CommissionFilter) ([]models.Commission, int64, error) {
	var total int64
	if err := s.commissionScope(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Commission
	err := s.commissionScope(ctx, f).
		Order("date DESC, id DESC").
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&rows).Error
	return rows, total, err
}

func (s *GormStore) SumCommissions(ctx context.Context, f models.CommissionFilter) (decimal.Decimal, error) {
	var out sumRow
	err := s.commissionScope(ctx, f).
		Where("status <> ?", models.CommissionCancelled).
		Select("COALESCE(SUM(amount),0) AS total").
		Scan(&out).Error
	return out.Total, err
}

func (s *GormStore) PendingCommissionsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Commission, error) {
	var rows []models.Commission
	err := s.db.WithContext(ctx).
		Where("status = ? AND date <= ?", models.CommissionPending, cutoff).
		Order("date ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

type sumRow struct {
	Total decimal.Decimal
}

const utcDay = "to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD')"

func (s *GormStore) DailyCommissions(ctx context.Context, agentID uint, since time.Time) ([]models.DailyTotal, error) {
	var rows []models.DailyTotal
	err := s.db.WithContext(ctx).Model(&models.Commission{}).
		Select(fmt.Sprintf(utcDay, "date")+" AS day, COALESCE(SUM(amount),0) AS total, COUNT(*) AS count").
		Where("agent_id = ? AND date >= ? AND status <> ?", agentID, since, models.CommissionCancelled).
		Group("day").
		Order("day").
		Scan(&rows).Error
	return rows, err
}

func (s *GormStore) CreateReferral(ctx context.Context, r *models.Referral) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) FindReferral(ctx context.Context, id uint) (*models.Referral, error) {
	var r models.Referral
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *GormStore) RecordFirstDeposit(ctx context.Context, id uint, u models.FirstDepositUpdate) error {
	res := s.db.WithContext(ctx).Model(&models.Referral{}).
		Where("id = ? AND first_deposit = ?", id, false).
		Updates(map[string]any{
			"first_deposit":     true,
			"deposit_amount":    u.Amount,
			"deposit_at":        u.At,
			"revenue_generated": u.Revenue,
			"status":            models.ReferralDeposited,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

func (s *GormStore) referralScope(ctx context.Context, f models.ReferralFilter) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Referral{}).Where("affiliate_id = ?", f.AffiliateID)
	if f.WithRevenue {
		tx = tx.Where("revenue_generated > 0")
	}
	return tx
}

func (s *GormStore) ListReferrals(ctx context.Context, f models.ReferralFilter) ([]models.Referral, int64, error) {
	var total int64
	if err := s.referralScope(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Referral
	err := s.referralScope(ctx, f).
		Order("deposit_at DESC NULLS LAST, registered_at DESC").
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&rows).Error
	return rows, total, err
}

func (s *GormStore) SumReferralRevenue(ctx context.Context, affiliateID uint) (decimal.Decimal, error) {
	var out sumRow
	err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Where("affiliate_id = ?", affiliateID).
		Select("COALESCE(SUM(revenue_generated),0) AS total").
		Scan(&out).Error
	return out.Total, err
}

func (s *GormStore) DailyRegistrations(ctx context.Context, affiliateID uint, since time.Time) ([]models.DailyTotal, error) {
	var rows []models.DailyTotal
	err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Select(fmt.Sprintf(utcDay, "registered_at")+" AS day, 0 AS total, COUNT(*) AS count").
		Where("affiliate_id = ? AND registered_at >= ?", affiliateID, since).
		Group("day").
		Order("day").
		Scan(&rows).Error
	return rows, err
}

func (s *GormStore) DailyDeposits(ctx context.Context, affiliateID uint, since time.Time) ([]models.DailyTotal, error) {
	var rows []models.DailyTotal
	err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Select(fmt.Sprintf(utcDay, "deposit_at")+" AS day, COALESCE(SUM(revenue_generated),0) AS total, COUNT(*) AS count").
		Where("affiliate_id = ? AND first_deposit = ? AND deposit_at >= ?", affiliateID, true, since).
		Group("day").
		Order("day").
		Scan(&rows).Error
	return rows, err
}

func (s *GormStore) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	return s.db.WithContext(ctx).Create(w).Error
}

func (s *GormStore) FindWithdrawal(ctx context.Context, id uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.forUpdate(ctx).First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *GormStore) TransitionWithdrawal(ctx context.Context, id uint, t models.WithdrawalTransition) error {
	res := s.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, models.WithdrawalPending).
		Updates(map[string]any{
			"status":           t.Status,
			"processed_at":     t.ProcessedAt,
			"processed_by":     t.ProcessedBy,
			"rejection_reason": t.RejectionReason,
			"transaction_id":   t.TransactionID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

func (s *GormStore) withdrawalScope(ctx context.Context, f models.WithdrawalFilter) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Withdrawal{})
	if f.UserID != 0 {
		tx = tx.Where("user_id = ?", f.UserID)
	}
	if f.Role != "" {
		tx = tx.Where("user_role = ?", f.Role)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	return tx
}

func (s *GormStore) ListWithdrawals(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, int64, error) {
	var total int64
	if err := s.withdrawalScope(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Withdrawal
	err := s.withdrawalScope(ctx, f).
		Order("created_at DESC, id DESC").
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&rows).Error
	return rows, total, err
}

func (s *GormStore) CountWithdrawals(ctx context.Context, f models.WithdrawalFilter) (int64, error) {
	var total int64
	err := s.withdrawalScope(ctx, f).Count(&total).Error
	return total, err
}

func (s *GormStore) AppendLedger(ctx context.Context, e *models.LedgerEntry) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *GormStore) ListLedger(ctx context.Context, role models.Role, accountID uint) ([]models.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("account_role = ? AND account_id = ?", role, accountID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
