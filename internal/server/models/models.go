package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CredentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type AccountResponse struct {
	ID               uuid.UUID       `json:"id"`
	Login            string          `json:"login"`
	Balance          decimal.Decimal `json:"balance"`
	TotalEarned      decimal.Decimal `json:"total_earned"`
	RegistrationPaid bool            `json:"registration_paid"`
	CreatedAt        string          `json:"created_at"`
}

type TransactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type TaskResponse struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	CreatedAt    string          `json:"created_at"`
}

type CreateTaskRequest struct {
	Title        string          `json:"title"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
}

type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

type BankAccountRequest struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"holder_name"`
}

type BankAccountResponse struct {
	ID            uuid.UUID `json:"id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	HolderName    string    `json:"holder_name"`
	Verified      bool      `json:"verified"`
}

type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
}

type AdjustmentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Debit       bool            `json:"debit"`
	Description string          `json:"description"`
}

type StatsResponse struct {
	Accounts     int64           `json:"accounts"`
	Transactions int64           `json:"transactions"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}
