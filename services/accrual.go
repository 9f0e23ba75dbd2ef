package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"partnerhub/database"
	"partnerhub/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// promotionBatch bounds how many pending commissions one promotion run loads.
const promotionBatch = 500

type Accrual struct {
	store database.Store
	opts  Options
}

type LossEvent struct {
	AgentID  uint
	PlayerID uint
	Loss     decimal.Decimal
	// ExternalRef deduplicates redelivered events; generated when empty.
	ExternalRef string
	OccurredAt  time.Time
	Description string
}

// AccrueAgentCommission turns a player's loss into a commission for the
// owning agent. Commissions younger than the maturity window are held in
// pendingCommission; older ones (or all, with a zero window) are credited to
// the withdrawable balance directly.
func (s *Accrual) AccrueAgentCommission(ctx context.Context, ev LossEvent) (*models.Commission, *models.Agent, error) {
	if !ev.Loss.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}

	agent, err := findAgent(ctx, s.store, models.AccountQuery{ID: ev.AgentID})
	if err != nil {
		return nil, nil, err
	}
	player, err := s.store.FindPlayer(ctx, ev.PlayerID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && player.AgentID != agent.ID) {
		return nil, nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find player: %w", err)
	}

	now := s.opts.Now()
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	ref := strings.TrimSpace(ev.ExternalRef)
	if ref == "" {
		ref = uuid.NewString()
	}

	commission := &models.Commission{
		AgentID:        agent.ID,
		PlayerID:       player.ID,
		ExternalRef:    ref,
		PlayerLoss:     Round2(ev.Loss),
		CommissionRate: agent.CommissionRate,
		Amount:         Percent(ev.Loss, agent.CommissionRate),
		Status:         models.CommissionPending,
		Date:           occurred,
		Description:    ev.Description,
	}
	if !s.isPending(occurred, now) {
		commission.Status = models.CommissionCredited
		commission.CreditedAt = &now
	}

	err = s.store.Transaction(ctx, func(tx database.Store) error {
		if err := tx.CreateCommission(ctx, commission); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEvent
			}
			return fmt.Errorf("create commission: %w", err)
		}
		if err := tx.AddPlayerLoss(ctx, player.ID, commission.PlayerLoss); err != nil {
			return fmt.Errorf("add player loss: %w", err)
		}

		book := newAgentAccount(tx, agent)
		p := posting{
			RefID: commissionRef(commission.ID),
			Note:  "loss commission",
			Meta:  datatypes.JSONMap{"commission_id": commission.ID, "player_id": player.ID, "external_ref": ref},
		}
		if commission.Status == models.CommissionPending {
			return book.Hold(ctx, commission.Amount, p)
		}
		return book.Credit(ctx, commission.Amount, p)
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"agent_id":      agent.ID,
		"commission_id": commission.ID,
		"amount":        commission.Amount.StringFixed(2),
		"status":        commission.Status,
	}).Info("commission accrued")

	updated, err := findAgent(ctx, s.store, models.AccountQuery{ID: agent.ID})
	if err != nil {
		return nil, nil, err
	}
	return commission, updated, nil
}

func (s *Accrual) isPending(occurred, now time.Time) bool {
	return s.opts.CommissionMaturity > 0 && now.Sub(occurred) < s.opts.CommissionMaturity
}

type DepositEvent struct {
	AffiliateID uint
	ReferralID  uint
	Deposit     decimal.Decimal
	OccurredAt  time.Time
}

// AccrueAffiliateRevenue credits the affiliate's revenue share of a
// referral's first deposit. Affiliate revenue has no maturity window and is
// withdrawable immediately. A referral earns revenue once; a later deposit
// event for it fails with ErrAlreadyProcessed.
func (s *Accrual) AccrueAffiliateRevenue(ctx context.Context, ev DepositEvent) (*models.Referral, *models.Affiliate, error) {
	if !ev.Deposit.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}

	affiliate, err := findAffiliate(ctx, s.store, models.AccountQuery{ID: ev.AffiliateID})
	if err != nil {
		return nil, nil, err
	}
	referral, err := s.store.FindReferral(ctx, ev.ReferralID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && referral.AffiliateID != affiliate.ID) {
		return nil, nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find referral: %w", err)
	}
	if referral.FirstDeposit {
		return nil, nil, ErrAlreadyProcessed
	}

	at := ev.OccurredAt
	if at.IsZero() {
		at = s.opts.Now()
	}
	update := models.FirstDepositUpdate{
		Amount:  Round2(ev.Deposit),
		Revenue: Percent(ev.Deposit, affiliate.RevenueSharePercent),
		At:      at,
	}

	err = s.store.Transaction(ctx, func(tx database.Store) error {
		if err := tx.RecordFirstDeposit(ctx, referral.ID, update); err != nil {
			if errors.Is(err, database.ErrNotApplied) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("record deposit: %w", err)
		}
		if err := tx.IncrementAccount(ctx, models.RoleAffiliate, affiliate.ID, models.BalanceDelta{TotalDeposits: 1}); err != nil {
			return fmt.Errorf("count deposit: %w", err)
		}

		book := newAffiliateAccount(tx, affiliate)
		return book.Credit(ctx, update.Revenue, posting{
			RefID: fmt.Sprintf("REF-%d", referral.ID),
			Note:  "first deposit revenue share",
			Meta:  datatypes.JSONMap{"referral_id": referral.ID, "deposit": update.Amount.StringFixed(2)},
		})
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"affiliate_id": affiliate.ID,
		"referral_id":  referral.ID,
		"revenue":      update.Revenue.StringFixed(2),
	}).Info("affiliate revenue accrued")

	updatedReferral, err := s.store.FindReferral(ctx, referral.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload referral: %w", err)
	}
	updatedAffiliate, err := findAffiliate(ctx, s.store, models.AccountQuery{ID: affiliate.ID})
	if err != nil {
		return nil, nil, err
	}
	return updatedReferral, updatedAffiliate, nil
}

// PromoteMatured credits every pending commission older than the maturity
// window. Each commission is promoted in its own transaction guarded on the
// pending status, so overlapping runs never credit one twice.
func (s *Accrual) PromoteMatured(ctx context.Context) (int, error) {
	if s.opts.CommissionMaturity <= 0 {
		return 0, nil
	}

	now := s.opts.Now()
	cutoff := now.Add(-s.opts.CommissionMaturity)
	pending, err := s.store.PendingCommissionsBefore(ctx, cutoff, promotionBatch)
	if err != nil {
		return 0, fmt.Errorf("load pending commissions: %w", err)
	}

	promoted := 0
	for _, c := range pending {
		err := s.store.Transaction(ctx, func(tx database.Store) error {
			if err := tx.TransitionCommission(ctx, c.ID, models.CommissionPending, models.CommissionCredited, now); err != nil {
				return err
			}
			book := &agentAccount{account{tx: tx, role: models.RoleAgent, id: c.AgentID}}
			return book.Mature(ctx, c.Amount, posting{
				RefID: commissionRef(c.ID),
				Note:  "commission matured",
				Meta:  datatypes.JSONMap{"commission_id": c.ID},
			})
		})
		if errors.Is(err, database.ErrNotApplied) {
			continue
		}
		if err != nil {
			return promoted, fmt.Errorf("promote commission %d: %w", c.ID, err)
		}
		promoted++
	}

	if promoted > 0 {
		log.WithField("count", promoted).Info("matured commissions credited")
	}
	return promoted, nil
}

// CancelCommission voids a commission that is still pending. Credited
// commissions may already be withdrawn and cannot be cancelled.
func (s *Accrual) CancelCommission(ctx context.Context, commissionID uint, adminID uint) (*models.Commission, error) {
	var commission *models.Commission
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		c, err := tx.FindCommission(ctx, commissionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommissionNotFound
		}
		if err != nil {
			return fmt.Errorf("find commission: %w", err)
		}
		if c.Status != models.CommissionPending {
			return ErrAlreadyProcessed
		}

		if err := tx.TransitionCommission(ctx, c.ID, models.CommissionPending, models.CommissionCancelled, s.opts.Now()); err != nil {
			if errors.Is(err, database.ErrNotApplied) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("cancel commission: %w", err)
		}

		book := &agentAccount{account{tx: tx, role: models.RoleAgent, id: c.AgentID}}
		if err := book.Void(ctx, c.Amount, posting{
			RefID: commissionRef(c.ID),
			Note:  "commission cancelled",
			Meta:  datatypes.JSONMap{"commission_id": c.ID, "admin_id": adminID},
		}); err != nil {
			return err
		}

		c.Status = models.CommissionCancelled
		commission = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"commission_id": commission.ID,
		"admin_id":      adminID,
	}).Info("commission cancelled")
	return commission, nil
}

func commissionRef(id uint) string {
	return fmt.Sprintf("COM-%d", id)
}
