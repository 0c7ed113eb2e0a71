package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taskpay/taskpay/internal/domain/accounts"
	"github.com/taskpay/taskpay/internal/domain/bankaccounts"
	"github.com/taskpay/taskpay/internal/domain/tasks"
	"github.com/taskpay/taskpay/internal/domain/transactions"
)

var (
	ErrAccountAlreadyExists    = errors.New("account already exists")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountAlreadyActivated = errors.New("account registration already activated")
	ErrInsufficientBalance     = errors.New("account balance not enough")
	ErrTaskAlreadyCompleted    = errors.New("task already completed by account")
	ErrTaskNotFound            = errors.New("task not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTransactionNotPending   = errors.New("transaction is not pending")
	ErrBankAccountNotFound     = errors.New("bank account not found")
	ErrBonusAlreadyApplied     = errors.New("daily bonus already applied for cycle")
	ErrRetryExceeded           = errors.New("concurrent modification retry attempts exceeded")
)

// Stats is the read-only reconciliation snapshot used by the admin
// overview. It carries no write side effects and tolerates staleness.
type Stats struct {
	Accounts     int64
	Transactions int64
	TotalBalance decimal.Decimal
}

type AccountStorage interface {
	CreateAccount(ctx context.Context, acc *accounts.Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*accounts.Account, error)
	ListAccounts(ctx context.Context) ([]*accounts.Account, error)

	// ActivateAccount flips registrationPaid false->true exactly once,
	// crediting the signup bonus and recording its transaction in the
	// same atomic unit. A second activation fails with
	// ErrAccountAlreadyActivated and leaves no effects.
	ActivateAccount(ctx context.Context, accountID uuid.UUID, bonus decimal.Decimal, record *transactions.Transaction) error
}

// LedgerStorage is the single synchronization point for balance
// mutations. Every method that moves funds performs the balance read,
// balance check, balance write and transaction insert as one atomic
// unit: no concurrent mutation on the same account may interleave, and
// a failed mutation leaves no partial effects.
type LedgerStorage interface {
	// ApplyDelta applies a signed balance delta and appends the given
	// transaction record atomically. Fails with ErrAccountNotFound if
	// the account is unknown and with ErrInsufficientBalance if the
	// delta would drive the balance negative; the check happens inside
	// the atomic unit, not as a prior separate read.
	ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal, record *transactions.Transaction) error

	// ApplyDailyBonus is ApplyDelta guarded by the per-account bonus
	// cycle: the credit lands only when the account's last applied
	// cycle is older than the given one, making the settlement
	// idempotent per (account, cycle). Fails with ErrBonusAlreadyApplied
	// otherwise.
	ApplyDailyBonus(ctx context.Context, accountID uuid.UUID, cycle int64, delta decimal.Decimal, record *transactions.Transaction) error

	// ConfirmDeposit completes a pending deposit transaction and
	// credits the net amount (gross minus tax) in one atomic unit. The
	// first-deposit exemption depends on total_earned, which can change
	// between the caller's read and the commit, so the store receives
	// both candidate nets and picks inside the atomic unit: netFirst
	// when total_earned is still zero, netReturning otherwise. The
	// recorded transaction amount stays gross.
	ConfirmDeposit(ctx context.Context, transactionID uuid.UUID, netFirst, netReturning decimal.Decimal) error

	// FailDeposit marks a pending deposit failed. No balance change:
	// pending deposits never credited anything.
	FailDeposit(ctx context.Context, transactionID uuid.UUID) error

	// ResolveWithdrawal advances a pending withdrawal to completed
	// (approve) or failed (reject). The balance was debited at request
	// time, so rejection must pass a compensating credit transaction
	// which is applied in the same atomic unit; the original recorded
	// amount is never mutated.
	ResolveWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool, compensation *transactions.Transaction) error

	GetTransaction(ctx context.Context, id uuid.UUID) (*transactions.Transaction, error)
	GetTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]*transactions.Transaction, error)
	GetTransactionsByKind(ctx context.Context, kind transactions.Kind, statuses ...transactions.Status) ([]*transactions.Transaction, error)
}

type TaskStorage interface {
	CreateTask(ctx context.Context, task *tasks.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*tasks.Task, error)
	GetActiveTasks(ctx context.Context) ([]*tasks.Task, error)

	// CompleteTask records the (account, task) completion and applies
	// the reward atomically. The completion uniqueness constraint is
	// the only duplicate check: a second completion of the same pair
	// fails with ErrTaskAlreadyCompleted and credits nothing.
	CompleteTask(ctx context.Context, accountID, taskID uuid.UUID, reward decimal.Decimal, record *transactions.Transaction) error
}

type BankAccountStorage interface {
	CreateBankAccount(ctx context.Context, acc *bankaccounts.BankAccount) error
	GetBankAccount(ctx context.Context, id uuid.UUID) (*bankaccounts.BankAccount, error)
	GetBankAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*bankaccounts.BankAccount, error)
	VerifyBankAccount(ctx context.Context, id uuid.UUID) error
}

type Storage interface {
	AccountStorage
	LedgerStorage
	TaskStorage
	BankAccountStorage
	Stats(ctx context.Context) (*Stats, error)
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}
