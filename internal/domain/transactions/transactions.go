package transactions

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountIDEmpty    = errors.New("transaction account id is empty")
	ErrAmountNotPositive = errors.New("transaction amount must be positive")
	ErrKindUnknown       = errors.New("transaction kind is unknown")
	ErrStatusUnknown     = errors.New("transaction status is unknown")
	ErrStatusFinal       = errors.New("transaction status is final")
)

// Kind names the settlement rule that produced the transaction. The
// amount field always holds a positive magnitude; the direction of the
// balance movement is implied by the kind.
type Kind string

const (
	KindDeposit     Kind = "DEPOSIT"
	KindWithdrawal  Kind = "WITHDRAWAL"
	KindTaskReward  Kind = "TASK_REWARD"
	KindAdReward    Kind = "AD_REWARD"
	KindDailyBonus  Kind = "DAILY_BONUS"
	KindAdminCredit Kind = "ADMIN_CREDIT"
	KindAdminDebit  Kind = "ADMIN_DEBIT"
	KindSignupBonus Kind = "SIGNUP_BONUS"
)

func (k Kind) String() string {
	return string(k)
}

// Debit reports whether the kind moves funds out of the account.
func (k Kind) Debit() bool {
	return k == KindWithdrawal || k == KindAdminDebit
}

// Deferred reports whether the kind settles asynchronously: deposits and
// withdrawals start pending and are completed by an external confirmation,
// every other kind completes immediately.
func (k Kind) Deferred() bool {
	return k == KindDeposit || k == KindWithdrawal
}

func ParseKind(kind string) (Kind, error) {
	switch Kind(kind) {
	case KindDeposit, KindWithdrawal, KindTaskReward, KindAdReward,
		KindDailyBonus, KindAdminCredit, KindAdminDebit, KindSignupBonus:
		return Kind(kind), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrKindUnknown, kind)
	}
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(status string) (Status, error) {
	switch Status(status) {
	case StatusPending, StatusCompleted, StatusFailed:
		return Status(status), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrStatusUnknown, status)
	}
}

// Transaction is one append-only ledger entry. The recorded amount is
// never rewritten after creation: a rejected withdrawal is compensated
// with a fresh credit entry instead.
type Transaction struct {
	id          uuid.UUID
	accountID   uuid.UUID
	kind        Kind
	amount      decimal.Decimal
	status      Status
	description string
	reference   string
	createdAt   time.Time
}

// NewTransaction creates a ledger entry for a settlement. Deposits and
// withdrawals start pending, everything else completes immediately.
func NewTransaction(accountID uuid.UUID, kind Kind, amount decimal.Decimal, description string) (*Transaction, error) {
	if accountID == uuid.Nil {
		return nil, ErrAccountIDEmpty
	}

	if _, err := ParseKind(kind.String()); err != nil {
		return nil, err
	}

	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	status := StatusCompleted
	if kind.Deferred() {
		status = StatusPending
	}

	return &Transaction{
		id:          uuid.New(),
		accountID:   accountID,
		kind:        kind,
		amount:      amount,
		status:      status,
		description: description,
		createdAt:   time.Now(),
	}, nil
}

// RestoreTransaction rebuilds a transaction from stored state.
func RestoreTransaction(
	id, accountID uuid.UUID,
	kind Kind,
	amount decimal.Decimal,
	status Status,
	description, reference string,
	createdAt time.Time,
) (*Transaction, error) {
	if accountID == uuid.Nil {
		return nil, ErrAccountIDEmpty
	}

	if _, err := ParseKind(kind.String()); err != nil {
		return nil, err
	}

	if _, err := ParseStatus(status.String()); err != nil {
		return nil, err
	}

	return &Transaction{
		id:          id,
		accountID:   accountID,
		kind:        kind,
		amount:      amount,
		status:      status,
		description: description,
		reference:   reference,
		createdAt:   createdAt,
	}, nil
}

func (t *Transaction) ID() uuid.UUID {
	return t.id
}

func (t *Transaction) AccountID() uuid.UUID {
	return t.accountID
}

func (t *Transaction) Kind() Kind {
	return t.kind
}

func (t *Transaction) Amount() decimal.Decimal {
	return t.amount
}

// SignedAmount is the amount with the direction implied by the kind
// applied: negative for debits, positive for credits.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.kind.Debit() {
		return t.amount.Neg()
	}

	return t.amount
}

func (t *Transaction) Status() Status {
	return t.status
}

func (t *Transaction) Description() string {
	return t.description
}

// Reference is the external payment gateway reference attached to
// deferred transactions.
func (t *Transaction) Reference() string {
	return t.reference
}

func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Transaction) SetReference(reference string) {
	t.reference = reference
}

// Resolve advances a pending transaction to a final status. Completed
// and failed are terminal: resolving twice is an error.
func (t *Transaction) Resolve(status Status) error {
	if t.status != StatusPending {
		return ErrStatusFinal
	}

	if status != StatusCompleted && status != StatusFailed {
		return fmt.Errorf("%w: %s", ErrStatusUnknown, status)
	}

	t.status = status

	return nil
}
