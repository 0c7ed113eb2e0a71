package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/storage"
)

var (
	ErrBelowMinimumWithdrawal = errors.New("withdrawal amount below configured minimum")
	ErrUnverifiedDestination  = errors.New("withdrawal destination not owned or not verified")
	ErrTaskInactive           = errors.New("task is not active")
	ErrBonusNotEligible       = errors.New("account balance too low for daily bonus")
)

// Ledger is the reward settlement engine: it computes the balance delta
// for a named rule and submits it, paired with its audit transaction,
// to the storage layer as one atomic unit. Admission control for
// withdrawals lives here too.
type Ledger struct {
	store  storage.Storage
	policy Policy
	log    *slog.Logger
}

type Option func(l *Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.log = logger
	}
}

func WithPolicy(policy Policy) Option {
	return func(l *Ledger) {
		l.policy = policy
	}
}

func NewLedger(store storage.Storage, opts ...Option) *Ledger {
	ledg := &Ledger{
		store:  store,
		policy: DefaultPolicy(),
		log:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(ledg)
	}

	return ledg
}

func (l *Ledger) Policy() Policy {
	return l.policy
}

// ActivateRegistration flips the account's registration flag and credits
// the one-time signup bonus. The storage guard makes a repeated
// activation fail with storage.ErrAccountAlreadyActivated.
func (l *Ledger) ActivateRegistration(ctx context.Context, accountID uuid.UUID) (*transactions.Transaction, error) {
	record, err := transactions.NewTransaction(
		accountID, transactions.KindSignupBonus, l.policy.SignupBonus, "registration signup bonus",
	)
	if err != nil {
		return nil, fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	if err := l.store.ActivateAccount(ctx, accountID, l.policy.SignupBonus, record); err != nil {
		return nil, fmt.Errorf("store.ActivateAccount: %w", err)
	}

	l.log.Info("Registration activated", slog.String("account_id", accountID.String()))

	return record, nil
}

// SettleTaskReward credits the task's fixed reward. The completion
// uniqueness constraint in storage is the only duplicate check; a second
// settlement of the same (account, task) pair fails with
// storage.ErrTaskAlreadyCompleted.
func (l *Ledger) SettleTaskReward(ctx context.Context, accountID, taskID uuid.UUID) (*transactions.Transaction, error) {
	task, err := l.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("store.GetTask: %w", err)
	}

	if !task.Active() {
		return nil, ErrTaskInactive
	}

	record, err := transactions.NewTransaction(
		accountID, transactions.KindTaskReward, task.RewardAmount(),
		fmt.Sprintf("reward for task %q", task.Title()),
	)
	if err != nil {
		return nil, fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	if err := l.store.CompleteTask(ctx, accountID, taskID, task.RewardAmount(), record); err != nil {
		return nil, fmt.Errorf("store.CompleteTask: %w", err)
	}

	return record, nil
}

// SettleAdReward credits a reward drawn uniformly from the closed
// integer range [policy.AdRewardMin, policy.AdRewardMax].
func (l *Ledger) SettleAdReward(ctx context.Context, accountID uuid.UUID) (*transactions.Transaction, error) {
	amount := decimal.NewFromInt(int64(
		l.policy.AdRewardMin + rand.Intn(l.policy.AdRewardMax-l.policy.AdRewardMin+1),
	))

	record, err := transactions.NewTransaction(
		accountID, transactions.KindAdReward, amount, "ad view reward",
	)
	if err != nil {
		return nil, fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	if err := l.store.ApplyDelta(ctx, accountID, amount, record); err != nil {
		return nil, fmt.Errorf("store.ApplyDelta: %w", err)
	}

	return record, nil
}

// SettleDailyBonus applies the tiered interest rule for the given
// settlement cycle. The per-account cycle guard in storage makes a
// repeated invocation for the same cycle fail with
// storage.ErrBonusAlreadyApplied, so a rerun of the scheduler cannot
// double-credit.
func (l *Ledger) SettleDailyBonus(ctx context.Context, accountID uuid.UUID, cycle int64) (*transactions.Transaction, error) {
	acc, err := l.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("store.GetAccountByID: %w", err)
	}

	delta := l.policy.DailyBonusDelta(acc.Balance())
	if !delta.IsPositive() {
		return nil, ErrBonusNotEligible
	}

	record, err := transactions.NewTransaction(
		accountID, transactions.KindDailyBonus, delta, "daily balance bonus",
	)
	if err != nil {
		return nil, fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	if err := l.store.ApplyDailyBonus(ctx, accountID, cycle, delta, record); err != nil {
		return nil, fmt.Errorf("store.ApplyDailyBonus: %w", err)
	}

	return record, nil
}

// RequestDeposit records a pending deposit for the gross amount. No
// balance moves until the payment gateway confirms the payment; the
// zero delta still verifies the account exists and appends the record
// atomically.
func (l *Ledger) RequestDeposit(ctx context.Context, accountID uuid.UUID, gross decimal.Decimal, reference string) (*transactions.Transaction, error) {
	record, err := transactions.NewTransaction(
		accountID, transactions.KindDeposit, gross, "deposit via payment gateway",
	)
	if err != nil {
		return nil, fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	record.SetReference(reference)

	if err := l.store.ApplyDelta(ctx, accountID, decimal.Zero, record); err != nil {
		return nil, fmt.Errorf("store.ApplyDelta: %w", err)
	}

	return record, nil
}

// ConfirmDeposit settles a confirmed deposit: the recorded amount stays
// gross, the credited delta is the net after tax. The first deposit of
// an account that has earned nothing exempts the configured threshold.
// Both net variants are handed to the store, which picks by the
// account's total_earned inside the atomic unit, so a credit landing
// between this call and the commit cannot grant a stale exemption.
func (l *Ledger) ConfirmDeposit(ctx context.Context, transactionID uuid.UUID) error {
	record, err := l.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("store.GetTransaction: %w", err)
	}

	gross := record.Amount()
	netFirst := gross.Sub(l.policy.DepositTax(gross, true))
	netReturning := gross.Sub(l.policy.DepositTax(gross, false))

	if err := l.store.ConfirmDeposit(ctx, transactionID, netFirst, netReturning); err != nil {
		return fmt.Errorf("store.ConfirmDeposit: %w", err)
	}

	l.log.Info("Deposit confirmed",
		slog.String("transaction_id", transactionID.String()),
		slog.String("gross", gross.String()),
	)

	return nil
}

// FailDeposit marks a pending deposit failed after the payment gateway
// reported the payment as failed or abandoned.
func (l *Ledger) FailDeposit(ctx context.Context, transactionID uuid.UUID) error {
	if err := l.store.FailDeposit(ctx, transactionID); err != nil {
		return fmt.Errorf("store.FailDeposit: %w", err)
	}

	return nil
}

// RequestWithdrawal runs admission control and, when all checks pass,
// debits the balance immediately while the withdrawal stays pending.
// Debiting at request time prevents the same balance being spent into
// multiple pending withdrawals.
func (l *Ledger) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, bankAccountID uuid.UUID) (*transactions.Transaction, error) {
	if amount.LessThan(l.policy.MinWithdrawal) {
		return nil, ErrBelowMinimumWithdrawal
	}

	dest, err := l.store.GetBankAccount(ctx, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("store.GetBankAccount: %w", err)
	}

	if dest.OwnerID() != accountID || !dest.Verified() {
		return nil, ErrUnverifiedDestination
	}

	record, err := transactions.NewTransaction(
		accountID, transactions.KindWithdrawal, amount,
		fmt.Sprintf("withdrawal to %s account %s", dest.BankName(), dest.AccountNumber()),
	)
	if err != nil {
		return nil, fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	if err := l.store.ApplyDelta(ctx, accountID, amount.Neg(), record); err != nil {
		return nil, fmt.Errorf("store.ApplyDelta: %w", err)
	}

	return record, nil
}

// ResolveWithdrawal finalizes a pending withdrawal. Approval completes
// it; rejection fails it and restores the balance with a fresh
// compensating credit, never by rewriting the original record.
func (l *Ledger) ResolveWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool) error {
	if approve {
		if err := l.store.ResolveWithdrawal(ctx, transactionID, true, nil); err != nil {
			return fmt.Errorf("store.ResolveWithdrawal: %w", err)
		}

		return nil
	}

	record, err := l.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("store.GetTransaction: %w", err)
	}

	compensation, err := transactions.NewTransaction(
		record.AccountID(), transactions.KindAdminCredit, record.Amount(),
		fmt.Sprintf("compensation for rejected withdrawal %s", record.ID()),
	)
	if err != nil {
		return fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	if err := l.store.ResolveWithdrawal(ctx, transactionID, false, compensation); err != nil {
		return fmt.Errorf("store.ResolveWithdrawal: %w", err)
	}

	return nil
}

// AdminAdjust applies an admin-supplied credit or debit. The magnitude
// is unconstrained, but a debit is still subject to the non-negative
// balance invariant inside the store.
func (l *Ledger) AdminAdjust(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, debit bool, description string) (*transactions.Transaction, error) {
	kind := transactions.KindAdminCredit
	delta := amount

	if debit {
		kind = transactions.KindAdminDebit
		delta = amount.Neg()
	}

	record, err := transactions.NewTransaction(accountID, kind, amount, description)
	if err != nil {
		return nil, fmt.Errorf("transactions.NewTransaction: %w", err)
	}

	if err := l.store.ApplyDelta(ctx, accountID, delta, record); err != nil {
		return nil, fmt.Errorf("store.ApplyDelta: %w", err)
	}

	return record, nil
}

// ReadSnapshot returns the reconciliation aggregate for the admin
// overview.
func (l *Ledger) ReadSnapshot(ctx context.Context) (*storage.Stats, error) {
	stats, err := l.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.Stats: %w", err)
	}

	return stats, nil
}
