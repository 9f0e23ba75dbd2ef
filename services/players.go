package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"partnerhub/database"
	"partnerhub/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// recentCommissions is how many commissions a player detail carries.
const recentCommissions = 10

type PlayerQuery struct {
	UserID uint
	Search string
	Status string
	Page   int
	Limit  int
}

type PlayerList struct {
	Players    []models.Player   `json:"players"`
	Pagination models.Pagination `json:"pagination"`
}

// ListPlayers pages through an agent's players, newest first.
func (s *Accounts) ListPlayers(ctx context.Context, q PlayerQuery) (*PlayerList, error) {
	status := models.PlayerStatus(strings.TrimSpace(q.Status))
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	agent, err := findAgent(ctx, s.store, models.AccountQuery{UserID: q.UserID})
	if err != nil {
		return nil, err
	}
	page, limit := normalizePage(q.Page, q.Limit, 10)

	rows, total, err := s.store.ListPlayers(ctx, models.PlayerFilter{
		AgentID: agent.ID,
		Search:  strings.TrimSpace(q.Search),
		Status:  status,
		Page:    models.Page{Page: page, Limit: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if rows == nil {
		rows = []models.Player{}
	}

	return &PlayerList{
		Players:    rows,
		Pagination: models.NewPagination(total, page, limit),
	}, nil
}

type PlayerDetail struct {
	Player            *models.Player      `json:"player"`
	RecentCommissions []models.Commission `json:"recent_commissions"`
}

func ownedPlayer(ctx context.Context, store database.Store, agentID, playerID uint) (*models.Player, error) {
	player, err := store.FindPlayer(ctx, playerID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && player.AgentID != agentID) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return player, nil
}

// GetPlayer returns one of the agent's players with its latest commissions.
func (s *Accounts) GetPlayer(ctx context.Context, userID, playerID uint) (*PlayerDetail, error) {
	agent, err := findAgent(ctx, s.store, models.AccountQuery{UserID: userID})
	if err != nil {
		return nil, err
	}
	player, err := ownedPlayer(ctx, s.store, agent.ID, playerID)
	if err != nil {
		return nil, err
	}

	rows, _, err := s.store.ListCommissions(ctx, models.CommissionFilter{
		AgentID:  agent.ID,
		PlayerID: player.ID,
		Page:     models.Page{Page: 1, Limit: recentCommissions},
	})
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	if rows == nil {
		rows = []models.Commission{}
	}

	return &PlayerDetail{Player: player, RecentCommissions: rows}, nil
}

// TogglePlayerStatus blocks an active player and reactivates any other.
func (s *Accounts) TogglePlayerStatus(ctx context.Context, userID, playerID uint) (*models.Player, error) {
	agent, err := findAgent(ctx, s.store, models.AccountQuery{UserID: userID})
	if err != nil {
		return nil, err
	}

	var player *models.Player
	err = s.store.Transaction(ctx, func(tx database.Store) error {
		p, err := ownedPlayer(ctx, tx, agent.ID, playerID)
		if err != nil {
			return err
		}
		to := p.Status.Toggled()
		if err := tx.SetPlayerStatus(ctx, p.ID, p.Status, to); err != nil {
			if errors.Is(err, database.ErrNotApplied) {
				return ErrConflict
			}
			return fmt.Errorf("set player status: %w", err)
		}
		p.Status = to
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"agent_id":  agent.ID,
		"player_id": player.ID,
		"status":    player.Status,
	}).Info("player status changed")
	return player, nil
}
