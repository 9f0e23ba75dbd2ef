package services

import (
	"context"
	"testing"
	"time"

	"partnerhub/database"
	"partnerhub/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *database.MemoryStore
	svc   *Services
	now   time.Time
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{store: database.NewMemoryStore(), now: testNow}
	clock := func() time.Time { return f.now }
	f.store.SetClock(clock)
	opts.Now = clock
	f.svc = New(f.store, opts)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) agent(t *testing.T, userID uint, balance string) *models.Agent {
	t.Helper()
	ctx := context.Background()

	agent, err := f.svc.Accounts.CreateAgent(ctx, userID, nil)
	require.NoError(t, err)
	if balance != "" {
		require.NoError(t, f.store.IncrementAccount(ctx, models.RoleAgent, agent.ID, models.BalanceDelta{
			TotalEarnings:       dec(balance),
			WithdrawableBalance: dec(balance),
		}))
	}
	return agent
}

func (f *fixture) affiliate(t *testing.T, userID uint, balance string) *models.Affiliate {
	t.Helper()
	ctx := context.Background()

	affiliate, err := f.svc.Accounts.CreateAffiliate(ctx, userID, nil)
	require.NoError(t, err)
	if balance != "" {
		require.NoError(t, f.store.IncrementAccount(ctx, models.RoleAffiliate, affiliate.ID, models.BalanceDelta{
			TotalEarnings:       dec(balance),
			WithdrawableBalance: dec(balance),
		}))
	}
	return affiliate
}

func (f *fixture) balances(t *testing.T, role models.Role, userID uint) models.Balances {
	t.Helper()
	snap, err := f.svc.Dashboard.Snapshot(context.Background(), role, userID)
	require.NoError(t, err)
	return snap.Balances
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
