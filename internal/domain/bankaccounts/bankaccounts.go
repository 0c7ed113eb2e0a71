package bankaccounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOwnerIDEmpty       = errors.New("bank account owner id is empty")
	ErrBankNameEmpty      = errors.New("bank name is empty")
	ErrAccountNumberEmpty = errors.New("bank account number is empty")
	ErrHolderNameEmpty    = errors.New("bank account holder name is empty")
)

// BankAccount is a withdrawal destination. Modelled as an explicit
// structure instead of a free-form metadata map, so the shape is checked
// at compile time. A destination must be verified before it can receive
// a withdrawal.
type BankAccount struct {
	id            uuid.UUID
	ownerID       uuid.UUID
	bankName      string
	accountNumber string
	holderName    string
	verified      bool
	createdAt     time.Time
}

func NewBankAccount(ownerID uuid.UUID, bankName, accountNumber, holderName string) (*BankAccount, error) {
	if ownerID == uuid.Nil {
		return nil, ErrOwnerIDEmpty
	}

	if bankName == "" {
		return nil, ErrBankNameEmpty
	}

	if accountNumber == "" {
		return nil, ErrAccountNumberEmpty
	}

	if holderName == "" {
		return nil, ErrHolderNameEmpty
	}

	return &BankAccount{
		id:            uuid.New(),
		ownerID:       ownerID,
		bankName:      bankName,
		accountNumber: accountNumber,
		holderName:    holderName,
		createdAt:     time.Now(),
	}, nil
}

// RestoreBankAccount rebuilds a bank account from stored state.
func RestoreBankAccount(
	id, ownerID uuid.UUID,
	bankName, accountNumber, holderName string,
	verified bool,
	createdAt time.Time,
) (*BankAccount, error) {
	if ownerID == uuid.Nil {
		return nil, ErrOwnerIDEmpty
	}

	return &BankAccount{
		id:            id,
		ownerID:       ownerID,
		bankName:      bankName,
		accountNumber: accountNumber,
		holderName:    holderName,
		verified:      verified,
		createdAt:     createdAt,
	}, nil
}

func (b *BankAccount) ID() uuid.UUID {
	return b.id
}

func (b *BankAccount) OwnerID() uuid.UUID {
	return b.ownerID
}

func (b *BankAccount) BankName() string {
	return b.bankName
}

func (b *BankAccount) AccountNumber() string {
	return b.accountNumber
}

func (b *BankAccount) HolderName() string {
	return b.holderName
}

func (b *BankAccount) Verified() bool {
	return b.verified
}

func (b *BankAccount) CreatedAt() time.Time {
	return b.createdAt
}

func (b *BankAccount) MarkVerified() {
	b.verified = true
}
