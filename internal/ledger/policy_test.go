package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_DailyBonusDelta(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name    string
		balance int64
		want    string
	}{
		{name: "below first tier", balance: 9999, want: "0"},
		{name: "exactly one tier", balance: 10000, want: "500"},
		{name: "two and a half tiers", balance: 25000, want: "2500"},
		{name: "zero balance", balance: 0, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.DailyBonusDelta(decimal.NewFromInt(tt.balance))

			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestPolicy_DepositTax(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name         string
		gross        int64
		firstDeposit bool
		want         string
	}{
		{name: "first deposit under exemption", gross: 4000, firstDeposit: true, want: "0"},
		{name: "first deposit at exemption", gross: 5000, firstDeposit: true, want: "0"},
		{name: "first deposit over exemption taxes only the excess", gross: 8000, firstDeposit: true, want: "90"},
		{name: "returning deposit taxes the full amount", gross: 8000, firstDeposit: false, want: "240"},
		{name: "returning small deposit", gross: 4000, firstDeposit: false, want: "120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.DepositTax(decimal.NewFromInt(tt.gross), tt.firstDeposit)

			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestCurrentCycle(t *testing.T) {
	day := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, CurrentCycle(day), CurrentCycle(day.Add(11*time.Hour)))
	assert.Equal(t, CurrentCycle(day)+1, CurrentCycle(day.Add(24*time.Hour)))

	// Cycle boundaries follow UTC regardless of the local zone.
	local := time.Date(2024, 6, 15, 23, 30, 0, 0, time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t, CurrentCycle(local), CurrentCycle(local.UTC()))
}
