package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"partnerhub/database"
	"partnerhub/helpers"
	"partnerhub/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// codeAttempts bounds retries when a generated partner code collides.
const codeAttempts = 5

type Accounts struct {
	store database.Store
	opts  Options
}

func newSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateAgent onboards userID as an agent. A nil rate uses the default.
func (s *Accounts) CreateAgent(ctx context.Context, userID uint, rate *decimal.Decimal) (*models.Agent, error) {
	if userID == 0 {
		return nil, ErrMissingField
	}
	r := s.opts.DefaultCommissionRate
	if rate != nil {
		r = *rate
	}
	if !validPercent(r) {
		return nil, ErrInvalidRate
	}

	var agent *models.Agent
	for i := 0; i < codeAttempts; i++ {
		agent = &models.Agent{
			UserID:         userID,
			AgentCode:      helpers.GeneratePartnerCode(helpers.AgentCodePrefix),
			SecretKey:      newSecret(),
			CommissionRate: Round2(r),
		}
		err := s.store.CreateAgent(ctx, agent)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create agent: %w", err)
		}
		if _, ferr := s.store.FindAgent(ctx, models.AccountQuery{UserID: userID}); ferr == nil {
			return nil, ErrDuplicateAccount
		}
		if i == codeAttempts-1 {
			return nil, ErrConflict
		}
	}

	log.WithFields(log.Fields{"agent_id": agent.ID, "user_id": userID}).Info("agent onboarded")
	return agent, nil
}

// CreateAffiliate onboards userID as an affiliate. A nil share uses the default.
func (s *Accounts) CreateAffiliate(ctx context.Context, userID uint, share *decimal.Decimal) (*models.Affiliate, error) {
	if userID == 0 {
		return nil, ErrMissingField
	}
	r := s.opts.DefaultRevenueShare
	if share != nil {
		r = *share
	}
	if !validPercent(r) {
		return nil, ErrInvalidRate
	}

	var affiliate *models.Affiliate
	for i := 0; i < codeAttempts; i++ {
		affiliate = &models.Affiliate{
			UserID:              userID,
			ReferralCode:        helpers.GeneratePartnerCode(helpers.ReferralCodePrefix),
			SecretKey:           newSecret(),
			RevenueSharePercent: Round2(r),
		}
		err := s.store.CreateAffiliate(ctx, affiliate)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create affiliate: %w", err)
		}
		if _, ferr := s.store.FindAffiliate(ctx, models.AccountQuery{UserID: userID}); ferr == nil {
			return nil, ErrDuplicateAccount
		}
		if i == codeAttempts-1 {
			return nil, ErrConflict
		}
	}

	log.WithFields(log.Fields{"affiliate_id": affiliate.ID, "user_id": userID}).Info("affiliate onboarded")
	return affiliate, nil
}

// Authenticate resolves a partner by code and secret key.
func (s *Accounts) Authenticate(ctx context.Context, role models.Role, code, secret string) (models.PartnerAccount, error) {
	if code == "" || secret == "" {
		return nil, ErrAccountNotFound
	}
	acct, _, err := findPartner(ctx, s.store, role, models.AccountQuery{Code: code})
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(acct.Secret()), []byte(secret)) != 1 {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

type PlayerInput struct {
	AgentID uint
	// AgentCode is used when AgentID is zero.
	AgentCode string
	Name      string
	Email     string
}

// RegisterPlayer attaches a new player to an agent and bumps totalUsers.
func (s *Accounts) RegisterPlayer(ctx context.Context, in PlayerInput) (*models.Player, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, ErrMissingField
	}

	q := models.AccountQuery{ID: in.AgentID}
	if in.AgentID == 0 {
		q.Code = strings.TrimSpace(in.AgentCode)
	}
	agent, err := findAgent(ctx, s.store, q)
	if err != nil {
		return nil, err
	}

	player := &models.Player{AgentID: agent.ID, Name: name, Email: email, Status: models.PlayerActive}
	err = s.store.Transaction(ctx, func(tx database.Store) error {
		if err := tx.CreatePlayer(ctx, player); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("create player: %w", err)
		}
		return tx.IncrementAccount(ctx, models.RoleAgent, agent.ID, models.BalanceDelta{TotalUsers: 1})
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

type ReferralInput struct {
	AffiliateID uint
	// ReferralCode is used when AffiliateID is zero.
	ReferralCode string
	PlayerName   string
	Email        string
	RegisteredAt time.Time
}

// RegisterReferral records a sign-up through an affiliate's link.
func (s *Accounts) RegisterReferral(ctx context.Context, in ReferralInput) (*models.Referral, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.PlayerName)
	if email == "" || name == "" {
		return nil, ErrMissingField
	}

	q := models.AccountQuery{ID: in.AffiliateID}
	if in.AffiliateID == 0 {
		q.Code = strings.TrimSpace(in.ReferralCode)
	}
	affiliate, err := findAffiliate(ctx, s.store, q)
	if err != nil {
		return nil, err
	}

	at := in.RegisteredAt
	if at.IsZero() {
		at = s.opts.Now()
	}
	referral := &models.Referral{
		AffiliateID:      affiliate.ID,
		ReferralCode:     affiliate.ReferralCode,
		PlayerName:       name,
		Email:            email,
		RegisteredAt:     at,
		DepositAmount:    decimal.Zero,
		RevenueGenerated: decimal.Zero,
		Status:           models.ReferralRegistered,
	}
	err = s.store.Transaction(ctx, func(tx database.Store) error {
		if err := tx.CreateReferral(ctx, referral); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("create referral: %w", err)
		}
		return tx.IncrementAccount(ctx, models.RoleAffiliate, affiliate.ID, models.BalanceDelta{TotalRegistrations: 1})
	})
	if err != nil {
		return nil, err
	}
	return referral, nil
}
