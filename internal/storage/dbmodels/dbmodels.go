package dbmodels

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID               uuid.UUID
	Login            string
	PasswordHash     string
	Balance          decimal.Decimal
	TotalEarned      decimal.Decimal
	RegistrationPaid bool
	LastBonusCycle   int64
	CreatedAt        time.Time
}

type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Kind        string
	Amount      decimal.Decimal
	Status      string
	Description string
	Reference   string
	CreatedAt   time.Time
}

type Task struct {
	ID           uuid.UUID
	Title        string
	RewardAmount decimal.Decimal
	Active       bool
	CreatedAt    time.Time
}

type BankAccount struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	BankName      string
	AccountNumber string
	HolderName    string
	Verified      bool
	CreatedAt     time.Time
}
