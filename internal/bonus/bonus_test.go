package bonus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpay/taskpay/internal/domain/accounts"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/storage"
	"github.com/taskpay/taskpay/internal/storage/inmemory"
)

func seedAccount(t *testing.T, store storage.Storage, balance int64) *accounts.Account {
	t.Helper()

	acc, err := accounts.NewAccount("user-"+uuid.NewString(), "password")
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(context.Background(), acc))

	if balance > 0 {
		ledg := ledger.NewLedger(store)

		_, err = ledg.AdminAdjust(context.Background(), acc.ID(),
			decimal.NewFromInt(balance), false, "seed")
		require.NoError(t, err)
	}

	return acc
}

func TestBonus_Process(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStorage(inmemory.NewStorage())
	ledg := ledger.NewLedger(store)

	rich := seedAccount(t, store, 25000)
	poor := seedAccount(t, store, 5000)

	b := NewBonus(store, ledg)

	require.NoError(t, b.Process(ctx))

	got, err := store.GetAccountByID(ctx, rich.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(27500)),
		"got balance %s", got.Balance())

	// Below the first tier: untouched.
	got, err = store.GetAccountByID(ctx, poor.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(5000)))

	// A second pass within the same cycle credits nothing.
	require.NoError(t, b.Process(ctx))

	got, err = store.GetAccountByID(ctx, rich.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(27500)),
		"got balance %s after rerun", got.Balance())
}
