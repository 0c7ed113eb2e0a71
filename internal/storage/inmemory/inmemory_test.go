package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpay/taskpay/internal/domain/accounts"
	"github.com/taskpay/taskpay/internal/domain/tasks"
	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/storage"
)

func newTestAccount(t *testing.T, store *Storage, balance int64) *accounts.Account {
	t.Helper()

	acc, err := accounts.RestoreAccount(
		uuid.New(), "user-"+uuid.NewString(), "hash",
		decimal.NewFromInt(balance), decimal.NewFromInt(balance),
		true, 0, time.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(context.Background(), acc))

	return acc
}

func newRecord(t *testing.T, accountID uuid.UUID, kind transactions.Kind, amount int64) *transactions.Transaction {
	t.Helper()

	record, err := transactions.NewTransaction(accountID, kind, decimal.NewFromInt(amount), "test")
	require.NoError(t, err)

	return record
}

func TestStorage_CreateAccount_DuplicateLogin(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	acc, err := accounts.NewAccount("duplicate", "password")
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, acc))

	again, err := accounts.NewAccount("duplicate", "password")
	require.NoError(t, err)

	err = store.CreateAccount(ctx, again)
	assert.ErrorIs(t, err, storage.ErrAccountAlreadyExists)
}

func TestStorage_ApplyDelta(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 100)

	record := newRecord(t, acc.ID(), transactions.KindAdReward, 60)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(60), record))

	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(160)))

	_, err = store.GetTransaction(ctx, record.ID())
	require.NoError(t, err)
}

func TestStorage_ApplyDelta_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 100)

	record := newRecord(t, acc.ID(), transactions.KindAdminDebit, 101)

	err := store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(-101), record)
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	// A rejected delta records nothing.
	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(100)))

	_, err = store.GetTransaction(ctx, record.ID())
	assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
}

func TestStorage_ApplyDelta_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	record := newRecord(t, uuid.New(), transactions.KindAdReward, 10)

	err := store.ApplyDelta(ctx, record.AccountID(), decimal.NewFromInt(10), record)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestStorage_ApplyDelta_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int

	for i := 0; i < 100; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			record, err := transactions.NewTransaction(
				acc.ID(), transactions.KindAdminDebit, decimal.NewFromInt(1), "drain")
			if err != nil {
				return
			}

			if err := store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(-1), record); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 50, succeeded)

	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().IsZero(), "balance %s", got.Balance())
}

func TestStorage_ApplyDailyBonus_CycleGuard(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 10000)

	const cycle = int64(19900)

	record := newRecord(t, acc.ID(), transactions.KindDailyBonus, 500)
	require.NoError(t, store.ApplyDailyBonus(ctx, acc.ID(), cycle, decimal.NewFromInt(500), record))

	// Same cycle again, and any earlier cycle, must be rejected.
	repeat := newRecord(t, acc.ID(), transactions.KindDailyBonus, 500)
	err := store.ApplyDailyBonus(ctx, acc.ID(), cycle, decimal.NewFromInt(500), repeat)
	assert.ErrorIs(t, err, storage.ErrBonusAlreadyApplied)

	err = store.ApplyDailyBonus(ctx, acc.ID(), cycle-1, decimal.NewFromInt(500), repeat)
	assert.ErrorIs(t, err, storage.ErrBonusAlreadyApplied)

	next := newRecord(t, acc.ID(), transactions.KindDailyBonus, 525)
	require.NoError(t, store.ApplyDailyBonus(ctx, acc.ID(), cycle+1, decimal.NewFromInt(525), next))
}

func TestStorage_CompleteTask_Unique(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 0)

	task, err := tasks.NewTask("one-shot", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, store.CreateTask(ctx, task))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			record, err := transactions.NewTransaction(
				acc.ID(), transactions.KindTaskReward, decimal.NewFromInt(100), "reward")
			if err != nil {
				return
			}

			if err := store.CompleteTask(ctx, acc.ID(), task.ID(), decimal.NewFromInt(100), record); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)

	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(100)))
}

func TestStorage_GetTransactionsByKind(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 100000)

	pending := newRecord(t, acc.ID(), transactions.KindWithdrawal, 50000)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(-50000), pending))

	resolved := newRecord(t, acc.ID(), transactions.KindWithdrawal, 50000)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(-50000), resolved))
	require.NoError(t, store.ResolveWithdrawal(ctx, resolved.ID(), true, nil))

	reward := newRecord(t, acc.ID(), transactions.KindAdReward, 60)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(60), reward))

	got, err := store.GetTransactionsByKind(ctx, transactions.KindWithdrawal, transactions.StatusPending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID(), got[0].ID())

	all, err := store.GetTransactionsByKind(ctx, transactions.KindWithdrawal)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStorage_ConfirmDeposit_FirstDepositNet(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 0)

	record := newRecord(t, acc.ID(), transactions.KindDeposit, 8000)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.Zero, record))

	err := store.ConfirmDeposit(ctx, record.ID(),
		decimal.NewFromInt(7910), decimal.NewFromInt(7760))
	require.NoError(t, err)

	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(7910)),
		"got balance %s", got.Balance())
}

func TestStorage_ConfirmDeposit_ExemptionDecidedAtApply(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 0)

	record := newRecord(t, acc.ID(), transactions.KindDeposit, 8000)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.Zero, record))

	// A reward landing while the deposit is pending makes the account a
	// returning one by the time the confirm applies.
	reward := newRecord(t, acc.ID(), transactions.KindAdReward, 60)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(60), reward))

	err := store.ConfirmDeposit(ctx, record.ID(),
		decimal.NewFromInt(7910), decimal.NewFromInt(7760))
	require.NoError(t, err)

	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(7820)),
		"got balance %s", got.Balance())
}

func TestStorage_ResolveWithdrawal_Reject(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()
	acc := newTestAccount(t, store, 60000)

	record := newRecord(t, acc.ID(), transactions.KindWithdrawal, 50000)
	require.NoError(t, store.ApplyDelta(ctx, acc.ID(), decimal.NewFromInt(-50000), record))

	compensation := newRecord(t, acc.ID(), transactions.KindAdminCredit, 50000)
	require.NoError(t, store.ResolveWithdrawal(ctx, record.ID(), false, compensation))

	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(60000)))

	stored, err := store.GetTransaction(ctx, record.ID())
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusFailed, stored.Status())

	// Only pending withdrawals can be resolved.
	err = store.ResolveWithdrawal(ctx, record.ID(), true, nil)
	assert.ErrorIs(t, err, storage.ErrTransactionNotPending)

	err = store.ResolveWithdrawal(ctx, uuid.New(), true, nil)
	assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
}

func TestStorage_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	first := newTestAccount(t, store, 1000)
	newTestAccount(t, store, 2500)

	record := newRecord(t, first.ID(), transactions.KindAdReward, 60)
	require.NoError(t, store.ApplyDelta(ctx, first.ID(), decimal.NewFromInt(60), record))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Accounts)
	assert.Equal(t, int64(1), stats.Transactions)
	assert.True(t, stats.TotalBalance.Equal(decimal.NewFromInt(3560)))
}
