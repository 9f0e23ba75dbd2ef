package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"partnerhub/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestThenApprove(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "100")

	w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{
		UserID: 1, Role: models.RoleAgent, Amount: dec("60"), PaymentDetails: "IBAN AE07 0331",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, w.Status)
	assert.Equal(t, models.PaymentBankTransfer, w.PaymentMethod)
	requireDecimal(t, "40", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)

	_, err = f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("50")})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	requireDecimal(t, "40", insufficient.Available)

	approved, err := f.svc.Withdrawals.Process(ctx, w.ID, ActionApprove, 900, "")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalApproved, approved.Status)
	assert.True(t, strings.HasPrefix(approved.TransactionID, "TXN-"))
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, uint(900), *approved.ProcessedBy)
	require.NotNil(t, approved.ProcessedAt)
	assert.Equal(t, testNow, *approved.ProcessedAt)

	b := f.balances(t, models.RoleAgent, 1)
	requireDecimal(t, "40", b.WithdrawableBalance)
	requireDecimal(t, "60", b.TotalWithdrawn)
}

func TestRequestThenReject(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "100")

	w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("30")})
	require.NoError(t, err)
	requireDecimal(t, "70", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)

	rejected, err := f.svc.Withdrawals.Process(ctx, w.ID, ActionReject, 900, "bad details")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, rejected.Status)
	assert.Equal(t, "bad details", rejected.RejectionReason)
	assert.Empty(t, rejected.TransactionID)

	b := f.balances(t, models.RoleAgent, 1)
	requireDecimal(t, "100", b.WithdrawableBalance)
	requireDecimal(t, "0", b.TotalWithdrawn)
}

func TestRejectDefaultReason(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.affiliate(t, 2, "50")

	w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 2, Role: models.RoleAffiliate, Amount: dec("20"), PaymentMethod: "crypto"})
	require.NoError(t, err)

	rejected, err := f.svc.Withdrawals.Process(ctx, w.ID, ActionReject, 900, "  ")
	require.NoError(t, err)
	assert.Equal(t, defaultRejectionReason, rejected.RejectionReason)
	requireDecimal(t, "50", f.balances(t, models.RoleAffiliate, 2).WithdrawableBalance)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "100")

	tests := []struct {
		name string
		req  WithdrawalRequest
		want error
	}{
		{"below minimum", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("5")}, ErrBelowMinimum},
		{"just below minimum", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("9.99")}, ErrBelowMinimum},
		{"rounds up to minimum", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("9.995")}, ErrAmountPrecision},
		{"sub-cent", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("20.001")}, ErrAmountPrecision},
		{"zero", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("0")}, ErrInvalidAmount},
		{"negative", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("-20")}, ErrInvalidAmount},
		{"unknown role", WithdrawalRequest{UserID: 1, Role: "admin", Amount: dec("20")}, ErrInvalidRole},
		{"unknown method", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("20"), PaymentMethod: "cash"}, ErrInvalidPaymentMethod},
		{"no account", WithdrawalRequest{UserID: 7, Role: models.RoleAgent, Amount: dec("20")}, ErrAccountNotFound},
		{"wrong role", WithdrawalRequest{UserID: 1, Role: models.RoleAffiliate, Amount: dec("20")}, ErrAccountNotFound},
		{"over balance", WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("100.01")}, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Withdrawals.Request(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.ErrorIs(t, ErrBelowMinimum, ErrValidation)
	requireDecimal(t, "100", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)

	list, err := f.svc.Withdrawals.List(ctx, WithdrawalQuery{UserID: 1, Role: models.RoleAgent})
	require.NoError(t, err)
	assert.Empty(t, list.Withdrawals)
}

func TestRequestExactBalance(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "10")

	_, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("10")})
	require.NoError(t, err)
	requireDecimal(t, "0", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)
}

func TestConcurrentRequestsNeverOverdraw(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "15")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("10")})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	requireDecimal(t, "5", f.balances(t, models.RoleAgent, 1).WithdrawableBalance)
}

func TestConcurrentRequestsSumBoundedByBalance(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.affiliate(t, 3, "237.50")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved = dec("0")
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := dec("10").Add(dec("0.25").Mul(decimal.NewFromInt(int64(i % 7))))
			w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 3, Role: models.RoleAffiliate, Amount: amount})
			if err != nil {
				return
			}
			mu.Lock()
			reserved = reserved.Add(w.Amount)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	b := f.balances(t, models.RoleAffiliate, 3)
	assert.False(t, b.WithdrawableBalance.IsNegative())
	assert.True(t, reserved.LessThanOrEqual(dec("237.50")))
	requireDecimal(t, "237.50", reserved.Add(b.WithdrawableBalance))
}

func TestProcessIsTerminal(t *testing.T) {
	actions := []struct {
		first, second Action
	}{
		{ActionApprove, ActionApprove},
		{ActionApprove, ActionReject},
		{ActionReject, ActionReject},
		{ActionReject, ActionApprove},
	}

	for _, tt := range actions {
		t.Run(string(tt.first)+"-"+string(tt.second), func(t *testing.T) {
			f := newFixture(t, Options{})
			ctx := context.Background()
			f.agent(t, 1, "100")

			w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("25")})
			require.NoError(t, err)

			_, err = f.svc.Withdrawals.Process(ctx, w.ID, tt.first, 900, "")
			require.NoError(t, err)
			before := f.balances(t, models.RoleAgent, 1)

			_, err = f.svc.Withdrawals.Process(ctx, w.ID, tt.second, 901, "")
			require.ErrorIs(t, err, ErrAlreadyProcessed)
			assert.Equal(t, before, f.balances(t, models.RoleAgent, 1))
		})
	}
}

func TestConcurrentProcessAppliesOnce(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "100")

	w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("40")})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCount  int
		terminal int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := ActionReject
			if i%2 == 0 {
				action = ActionApprove
			}
			_, err := f.svc.Withdrawals.Process(ctx, w.ID, action, 900, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				okCount++
			} else if errors.Is(err, ErrAlreadyProcessed) {
				terminal++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	assert.Equal(t, 9, terminal)

	b := f.balances(t, models.RoleAgent, 1)
	// Exactly one of the compensating actions ran.
	requireDecimal(t, "100", b.WithdrawableBalance.Add(b.TotalWithdrawn))
}

func TestProcessErrors(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "100")

	w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("25")})
	require.NoError(t, err)

	_, err = f.svc.Withdrawals.Process(ctx, 9999, ActionApprove, 900, "")
	assert.ErrorIs(t, err, ErrWithdrawalNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Withdrawals.Process(ctx, w.ID, Action("hold"), 900, "")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = ParseAction("Approve ")
	assert.NoError(t, err)
	_, err = ParseAction("delete")
	assert.ErrorIs(t, err, ErrInvalidAction)

	got, err := f.store.FindWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, got.Status)
}

func TestListWithdrawals(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.agent(t, 1, "200")
	f.affiliate(t, 2, "200")

	var ids []uint
	for i := 0; i < 3; i++ {
		w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("10")})
		require.NoError(t, err)
		ids = append(ids, w.ID)
		f.now = f.now.Add(1)
	}
	_, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 2, Role: models.RoleAffiliate, Amount: dec("10")})
	require.NoError(t, err)
	_, err = f.svc.Withdrawals.Process(ctx, ids[0], ActionApprove, 900, "")
	require.NoError(t, err)

	list, err := f.svc.Withdrawals.List(ctx, WithdrawalQuery{UserID: 1, Role: models.RoleAgent, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Total: 3, Page: 1, Limit: 2, Pages: 2}, list.Pagination)
	require.Len(t, list.Withdrawals, 2)
	assert.Equal(t, ids[2], list.Withdrawals[0].ID)

	pending, err := f.svc.Withdrawals.List(ctx, WithdrawalQuery{Status: "pending"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, pending.Pagination.Total)

	_, err = f.svc.Withdrawals.List(ctx, WithdrawalQuery{Status: "paid"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWithdrawalLedgerTrail(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	agent := f.agent(t, 1, "100")

	w, err := f.svc.Withdrawals.Request(ctx, WithdrawalRequest{UserID: 1, Role: models.RoleAgent, Amount: dec("30")})
	require.NoError(t, err)
	_, err = f.svc.Withdrawals.Process(ctx, w.ID, ActionReject, 900, "")
	require.NoError(t, err)

	entries, err := f.store.ListLedger(ctx, models.RoleAgent, agent.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.EntryReserve, entries[0].TrxType)
	assert.Equal(t, models.EntryRelease, entries[1].TrxType)
	assert.Equal(t, entries[0].RefID, entries[1].RefID)
}
