package transactions

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name       string
		kind       Kind
		wantStatus Status
	}{
		{name: "deposit starts pending", kind: KindDeposit, wantStatus: StatusPending},
		{name: "withdrawal starts pending", kind: KindWithdrawal, wantStatus: StatusPending},
		{name: "task reward completes immediately", kind: KindTaskReward, wantStatus: StatusCompleted},
		{name: "ad reward completes immediately", kind: KindAdReward, wantStatus: StatusCompleted},
		{name: "daily bonus completes immediately", kind: KindDailyBonus, wantStatus: StatusCompleted},
		{name: "signup bonus completes immediately", kind: KindSignupBonus, wantStatus: StatusCompleted},
		{name: "admin credit completes immediately", kind: KindAdminCredit, wantStatus: StatusCompleted},
		{name: "admin debit completes immediately", kind: KindAdminDebit, wantStatus: StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn, err := NewTransaction(accountID, tt.kind, decimal.NewFromInt(100), "test")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, txn.Status())
		})
	}
}

func TestNewTransaction_Invalid(t *testing.T) {
	_, err := NewTransaction(uuid.Nil, KindDeposit, decimal.NewFromInt(100), "test")
	assert.ErrorIs(t, err, ErrAccountIDEmpty)

	_, err = NewTransaction(uuid.New(), KindDeposit, decimal.Zero, "test")
	assert.ErrorIs(t, err, ErrAmountNotPositive)

	_, err = NewTransaction(uuid.New(), KindDeposit, decimal.NewFromInt(-100), "test")
	assert.ErrorIs(t, err, ErrAmountNotPositive)

	_, err = NewTransaction(uuid.New(), Kind("REFUND"), decimal.NewFromInt(100), "test")
	assert.ErrorIs(t, err, ErrKindUnknown)
}

func TestTransaction_SignedAmount(t *testing.T) {
	accountID := uuid.New()

	credit, err := NewTransaction(accountID, KindTaskReward, decimal.NewFromInt(100), "test")
	require.NoError(t, err)
	assert.True(t, credit.SignedAmount().Equal(decimal.NewFromInt(100)))

	debit, err := NewTransaction(accountID, KindWithdrawal, decimal.NewFromInt(100), "test")
	require.NoError(t, err)
	assert.True(t, debit.SignedAmount().Equal(decimal.NewFromInt(-100)))
}

func TestTransaction_Resolve(t *testing.T) {
	txn, err := NewTransaction(uuid.New(), KindWithdrawal, decimal.NewFromInt(100), "test")
	require.NoError(t, err)

	// Pending may only move to a final status.
	err = txn.Resolve(StatusPending)
	assert.ErrorIs(t, err, ErrStatusUnknown)

	require.NoError(t, txn.Resolve(StatusCompleted))
	assert.Equal(t, StatusCompleted, txn.Status())

	// Final statuses are terminal.
	err = txn.Resolve(StatusFailed)
	assert.ErrorIs(t, err, ErrStatusFinal)

	immediate, err := NewTransaction(uuid.New(), KindAdReward, decimal.NewFromInt(100), "test")
	require.NoError(t, err)

	err = immediate.Resolve(StatusCompleted)
	assert.ErrorIs(t, err, ErrStatusFinal)
}

func TestParseKind(t *testing.T) {
	for _, kind := range []Kind{
		KindDeposit, KindWithdrawal, KindTaskReward, KindAdReward,
		KindDailyBonus, KindAdminCredit, KindAdminDebit, KindSignupBonus,
	} {
		got, err := ParseKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	_, err := ParseKind("CASHBACK")
	assert.ErrorIs(t, err, ErrKindUnknown)
}

func TestKind_Debit(t *testing.T) {
	assert.True(t, KindWithdrawal.Debit())
	assert.True(t, KindAdminDebit.Debit())
	assert.False(t, KindDeposit.Debit())
	assert.False(t, KindTaskReward.Debit())
	assert.False(t, KindSignupBonus.Debit())
}
