package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy carries every tunable settlement value. All of them come from
// configuration at process start; nothing in the settlement paths reads
// a literal amount.
type Policy struct {
	// SignupBonus is the one-time credit issued when the registration
	// fee payment is confirmed.
	SignupBonus decimal.Decimal

	// MinWithdrawal is the single canonical minimum withdrawal amount
	// used by admission control for every request.
	MinWithdrawal decimal.Decimal

	// AdRewardMin and AdRewardMax bound the closed integer range an ad
	// view reward is drawn from.
	AdRewardMin int
	AdRewardMax int

	// BonusTierStep and BonusTierRate drive the daily bonus: the rate
	// applies once per complete multiple of the step held, against the
	// full balance.
	BonusTierStep decimal.Decimal
	BonusTierRate decimal.Decimal

	// DepositTaxRate taxes deposits. On an account that has earned
	// nothing yet, the first DepositTaxExemption units of the deposit
	// are tax-free and only the excess is taxed.
	DepositTaxRate      decimal.Decimal
	DepositTaxExemption decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		SignupBonus:         decimal.NewFromInt(100),
		MinWithdrawal:       decimal.NewFromInt(50000),
		AdRewardMin:         50,
		AdRewardMax:         100,
		BonusTierStep:       decimal.NewFromInt(10000),
		BonusTierRate:       decimal.NewFromFloat(0.05),
		DepositTaxRate:      decimal.NewFromFloat(0.03),
		DepositTaxExemption: decimal.NewFromInt(5000),
	}
}

// DailyBonusDelta computes the daily bonus for a balance:
// floor(balance / step) * rate * balance.
func (p Policy) DailyBonusDelta(balance decimal.Decimal) decimal.Decimal {
	tiers := balance.Div(p.BonusTierStep).Floor()

	return tiers.Mul(p.BonusTierRate).Mul(balance)
}

// DepositTax computes the tax on a gross deposit amount.
func (p Policy) DepositTax(gross decimal.Decimal, firstDeposit bool) decimal.Decimal {
	taxable := gross

	if firstDeposit {
		taxable = gross.Sub(p.DepositTaxExemption)
		if taxable.IsNegative() {
			taxable = decimal.Zero
		}
	}

	return taxable.Mul(p.DepositTaxRate)
}

// CurrentCycle maps a point in time to its daily bonus settlement
// cycle: the UTC day number since the Unix epoch.
func CurrentCycle(t time.Time) int64 {
	return t.UTC().Unix() / int64((24 * time.Hour).Seconds())
}
