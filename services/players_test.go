package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"partnerhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPlayers(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	other := f.agent(t, 2, "")

	a := f.player(t, agent.ID, "a@example.com")
	f.player(t, agent.ID, "b@example.com")
	c := f.player(t, agent.ID, "c@example.com")
	f.player(t, other.ID, "d@example.com")

	list, err := f.svc.Accounts.ListPlayers(ctx, PlayerQuery{UserID: 1})
	require.NoError(t, err)
	require.Len(t, list.Players, 3)
	assert.Equal(t, c.ID, list.Players[0].ID)
	assert.Equal(t, models.PlayerActive, list.Players[0].Status)
	assert.EqualValues(t, 3, list.Pagination.Total)
	assert.Equal(t, 10, list.Pagination.Limit)

	list, err = f.svc.Accounts.ListPlayers(ctx, PlayerQuery{UserID: 1, Search: "PLAYER B"})
	require.NoError(t, err)
	require.Len(t, list.Players, 1)
	assert.Equal(t, "b@example.com", list.Players[0].Email)

	_, err = f.svc.Accounts.TogglePlayerStatus(ctx, 1, a.ID)
	require.NoError(t, err)

	list, err = f.svc.Accounts.ListPlayers(ctx, PlayerQuery{UserID: 1, Status: "blocked"})
	require.NoError(t, err)
	require.Len(t, list.Players, 1)
	assert.Equal(t, a.ID, list.Players[0].ID)

	list, err = f.svc.Accounts.ListPlayers(ctx, PlayerQuery{UserID: 1, Status: "active", Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Players, 1)
	assert.Equal(t, 2, list.Pagination.Pages)

	_, err = f.svc.Accounts.ListPlayers(ctx, PlayerQuery{UserID: 1, Status: "gone"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.Accounts.ListPlayers(ctx, PlayerQuery{UserID: 9})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetPlayer(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	other := f.agent(t, 2, "")
	player := f.player(t, agent.ID, "a@example.com")
	second := f.player(t, agent.ID, "b@example.com")
	foreign := f.player(t, other.ID, "c@example.com")

	for i := 0; i < 12; i++ {
		_, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{
			AgentID:     agent.ID,
			PlayerID:    player.ID,
			Loss:        dec("10"),
			ExternalRef: fmt.Sprintf("loss-%d", i),
		})
		require.NoError(t, err)
	}
	_, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: agent.ID, PlayerID: second.ID, Loss: dec("50")})
	require.NoError(t, err)

	detail, err := f.svc.Accounts.GetPlayer(ctx, 1, player.ID)
	require.NoError(t, err)
	assert.Equal(t, player.ID, detail.Player.ID)
	requireDecimal(t, "120", detail.Player.TotalLost)
	require.Len(t, detail.RecentCommissions, recentCommissions)
	for _, c := range detail.RecentCommissions {
		assert.Equal(t, player.ID, c.PlayerID)
	}
	assert.Greater(t, detail.RecentCommissions[0].ID, detail.RecentCommissions[1].ID)

	detail, err = f.svc.Accounts.GetPlayer(ctx, 1, second.ID)
	require.NoError(t, err)
	assert.Len(t, detail.RecentCommissions, 1)

	_, err = f.svc.Accounts.GetPlayer(ctx, 1, foreign.ID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = f.svc.Accounts.GetPlayer(ctx, 1, 999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestTogglePlayerStatus(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	other := f.agent(t, 2, "")
	player := f.player(t, agent.ID, "a@example.com")
	foreign := f.player(t, other.ID, "b@example.com")

	snap, err := f.svc.Dashboard.Snapshot(ctx, models.RoleAgent, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.ActiveUsers)

	p, err := f.svc.Accounts.TogglePlayerStatus(ctx, 1, player.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerBlocked, p.Status)

	snap, err = f.svc.Dashboard.Snapshot(ctx, models.RoleAgent, 1)
	require.NoError(t, err)
	assert.Zero(t, snap.ActiveUsers)
	assert.EqualValues(t, 1, snap.TotalUsers)

	p, err = f.svc.Accounts.TogglePlayerStatus(ctx, 1, player.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerActive, p.Status)

	require.NoError(t, f.store.SetPlayerStatus(ctx, player.ID, models.PlayerActive, models.PlayerInactive))
	p, err = f.svc.Accounts.TogglePlayerStatus(ctx, 1, player.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerActive, p.Status, "inactive players are reactivated")

	_, err = f.svc.Accounts.TogglePlayerStatus(ctx, 1, foreign.ID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	stored, err := f.store.FindPlayer(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerActive, stored.Status)
}

func TestTogglePlayerStatusConcurrent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	const toggles = 10
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accounts.TogglePlayerStatus(ctx, 1, player.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.FindPlayer(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerActive, stored.Status)
}
