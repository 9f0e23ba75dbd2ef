package services

import (
	"context"
	"testing"
	"time"

	"partnerhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const week = 7 * 24 * time.Hour

func (f *fixture) player(t *testing.T, agentID uint, email string) *models.Player {
	t.Helper()
	p, err := f.svc.Accounts.RegisterPlayer(context.Background(), PlayerInput{AgentID: agentID, Name: "Player " + email, Email: email})
	require.NoError(t, err)
	return p
}

func TestAccrueCommissionCreditedImmediately(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	c, updated, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: agent.ID, PlayerID: player.ID, Loss: dec("200")})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionCredited, c.Status)
	requireDecimal(t, "20", c.Amount)
	requireDecimal(t, "10", c.CommissionRate)
	require.NotNil(t, c.CreditedAt)

	requireDecimal(t, "20", updated.TotalEarnings)
	requireDecimal(t, "20", updated.WithdrawableBalance)
	requireDecimal(t, "0", updated.PendingCommission)
	assert.EqualValues(t, 1, updated.TotalUsers)

	p, err := f.store.FindPlayer(ctx, player.ID)
	require.NoError(t, err)
	requireDecimal(t, "200", p.TotalLost)
}

func TestAccrueCommissionHeldThenMatured(t *testing.T) {
	f := newFixture(t, Options{CommissionMaturity: week})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	c, updated, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: agent.ID, PlayerID: player.ID, Loss: dec("133.33"), ExternalRef: "loss-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionPending, c.Status)
	assert.Nil(t, c.CreditedAt)
	requireDecimal(t, "13.33", updated.PendingCommission)
	requireDecimal(t, "13.33", updated.TotalEarnings)
	requireDecimal(t, "0", updated.WithdrawableBalance)

	n, err := f.svc.Accrual.PromoteMatured(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.now = f.now.Add(week)
	n, err = f.svc.Accrual.PromoteMatured(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b := f.balances(t, models.RoleAgent, 1)
	requireDecimal(t, "0", b.PendingCommission)
	requireDecimal(t, "13.33", b.WithdrawableBalance)
	requireDecimal(t, "13.33", b.TotalEarnings)

	got, err := f.store.FindCommission(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionCredited, got.Status)

	n, err = f.svc.Accrual.PromoteMatured(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	requireDecimal(t, "13.33", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)
}

func TestAccrueOldLossSkipsMaturity(t *testing.T) {
	f := newFixture(t, Options{CommissionMaturity: week})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	c, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{
		AgentID: agent.ID, PlayerID: player.ID, Loss: dec("50"), OccurredAt: testNow.Add(-8 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionCredited, c.Status)
	requireDecimal(t, "5", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)
}

func TestAccrueCommissionDuplicateEvent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	ev := LossEvent{AgentID: agent.ID, PlayerID: player.ID, Loss: dec("100"), ExternalRef: "round-42"}
	_, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, ev)
	require.NoError(t, err)
	_, _, err = f.svc.Accrual.AccrueAgentCommission(ctx, ev)
	require.ErrorIs(t, err, ErrDuplicateEvent)
	assert.ErrorIs(t, err, ErrConflict)

	b := f.balances(t, models.RoleAgent, 1)
	requireDecimal(t, "10", b.WithdrawableBalance)
	p, err := f.store.FindPlayer(ctx, player.ID)
	require.NoError(t, err)
	requireDecimal(t, "100", p.TotalLost)
}

func TestAccrueCommissionValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a1 := f.agent(t, 1, "")
	a2 := f.agent(t, 2, "")
	foreign := f.player(t, a2.ID, "b@example.com")
	own := f.player(t, a1.ID, "a@example.com")

	_, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: a1.ID, PlayerID: own.ID, Loss: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: 99, PlayerID: own.ID, Loss: dec("10")})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, _, err = f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: a1.ID, PlayerID: foreign.ID, Loss: dec("10")})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, _, err = f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: a1.ID, PlayerID: 404, Loss: dec("10")})
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	requireDecimal(t, "0", f.balances(t, models.RoleAgent, 1).TotalEarnings)
}

func TestCancelCommission(t *testing.T) {
	f := newFixture(t, Options{CommissionMaturity: week})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	c, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: agent.ID, PlayerID: player.ID, Loss: dec("80")})
	require.NoError(t, err)

	cancelled, err := f.svc.Accrual.CancelCommission(ctx, c.ID, 900)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionCancelled, cancelled.Status)

	b := f.balances(t, models.RoleAgent, 1)
	requireDecimal(t, "0", b.PendingCommission)
	requireDecimal(t, "0", b.TotalEarnings)

	_, err = f.svc.Accrual.CancelCommission(ctx, c.ID, 900)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = f.svc.Accrual.CancelCommission(ctx, 404, 900)
	assert.ErrorIs(t, err, ErrCommissionNotFound)

	f.now = f.now.Add(2 * week)
	n, err := f.svc.Accrual.PromoteMatured(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancelCreditedCommissionRefused(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	c, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{AgentID: agent.ID, PlayerID: player.ID, Loss: dec("80")})
	require.NoError(t, err)

	_, err = f.svc.Accrual.CancelCommission(ctx, c.ID, 900)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	requireDecimal(t, "8", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)
}

func (f *fixture) referral(t *testing.T, affiliateID uint, email string) *models.Referral {
	t.Helper()
	r, err := f.svc.Accounts.RegisterReferral(context.Background(), ReferralInput{AffiliateID: affiliateID, PlayerName: "Ref " + email, Email: email})
	require.NoError(t, err)
	return r
}

func TestAccrueAffiliateRevenue(t *testing.T) {
	f := newFixture(t, Options{CommissionMaturity: week})
	ctx := context.Background()
	affiliate := f.affiliate(t, 2, "")
	ref := f.referral(t, affiliate.ID, "r@example.com")
	assert.Equal(t, affiliate.ReferralCode, ref.ReferralCode)

	updatedRef, updated, err := f.svc.Accrual.AccrueAffiliateRevenue(ctx, DepositEvent{AffiliateID: affiliate.ID, ReferralID: ref.ID, Deposit: dec("400")})
	require.NoError(t, err)
	assert.True(t, updatedRef.FirstDeposit)
	assert.Equal(t, models.ReferralDeposited, updatedRef.Status)
	requireDecimal(t, "400", updatedRef.DepositAmount)
	requireDecimal(t, "100", updatedRef.RevenueGenerated)

	// Revenue share is withdrawable without a maturity window.
	requireDecimal(t, "100", updated.WithdrawableBalance)
	requireDecimal(t, "100", updated.TotalEarnings)
	assert.EqualValues(t, 1, updated.TotalRegistrations)
	assert.EqualValues(t, 1, updated.TotalDeposits)

	_, _, err = f.svc.Accrual.AccrueAffiliateRevenue(ctx, DepositEvent{AffiliateID: affiliate.ID, ReferralID: ref.ID, Deposit: dec("400")})
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	requireDecimal(t, "100", f.balances(t, models.RoleAffiliate, 2).WithdrawableBalance)
}

func TestAccrueAffiliateRevenueValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.affiliate(t, 2, "")
	b := f.affiliate(t, 3, "")
	ref := f.referral(t, b.ID, "r@example.com")

	_, _, err := f.svc.Accrual.AccrueAffiliateRevenue(ctx, DepositEvent{AffiliateID: a.ID, ReferralID: ref.ID, Deposit: dec("10")})
	assert.ErrorIs(t, err, ErrReferralNotFound)
	_, _, err = f.svc.Accrual.AccrueAffiliateRevenue(ctx, DepositEvent{AffiliateID: b.ID, ReferralID: ref.ID, Deposit: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = f.svc.Accrual.AccrueAffiliateRevenue(ctx, DepositEvent{AffiliateID: 77, ReferralID: ref.ID, Deposit: dec("10")})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = f.svc.Accounts.RegisterReferral(ctx, ReferralInput{AffiliateID: a.ID, PlayerName: "x", Email: "R@example.com "})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.EqualValues(t, 0, f.snapshot(t, models.RoleAffiliate, 2).TotalRegistrations)
}

func (f *fixture) snapshot(t *testing.T, role models.Role, userID uint) *AccountSnapshot {
	t.Helper()
	snap, err := f.svc.Dashboard.Snapshot(context.Background(), role, userID)
	require.NoError(t, err)
	return snap
}

// Withdrawable plus reserved plus withdrawn always equals what has matured.
func TestBalanceConservation(t *testing.T) {
	f := newFixture(t, Options{CommissionMaturity: week})
	ctx := context.Background()
	agent := f.agent(t, 1, "")
	player := f.player(t, agent.ID, "a@example.com")

	losses := []string{"120", "75.55", "300", "19.99", "1000"}
	for i, l := range losses {
		_, _, err := f.svc.Accrual.AccrueAgentCommission(ctx, LossEvent{
			AgentID: agent.ID, PlayerID: player.ID, Loss: dec(l), OccurredAt: testNow.Add(-time.Duration(i) * 48 * time.Hour),
		})
		require.NoError(t, err)
	}
	f.now = f.now.Add(week)
	_, err := f.svc.Accrual.PromoteMatured(ctx)
	require.NoError(t, err)

	var ids []uint
	for _, amount := range []string{"20", "30", "15.5"} {
		w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec(amount)})
		require.NoError(t, err)
		ids = append(ids, w.ID)
	}
	_, err = f.svc.Withdrawals.Process(ctx, ids[0], ActionApprove, 900, "")
	require.NoError(t, err)
	_, err = f.svc.Withdrawals.Process(ctx, ids[1], ActionReject, 900, "")
	require.NoError(t, err)

	b := f.balances(t, models.RoleAgent, 1)
	reserved := dec("15.5")
	requireDecimal(t, "20", b.TotalWithdrawn)
	requireDecimal(t, "151.56", b.TotalEarnings)
	requireDecimal(t, "0", b.PendingCommission)
	requireDecimal(t, b.TotalEarnings.String(), b.WithdrawableBalance.Add(reserved).Add(b.TotalWithdrawn).Add(b.PendingCommission))
}
