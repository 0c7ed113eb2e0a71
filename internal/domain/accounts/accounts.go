package accounts

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountLoginEmpty  = errors.New("account login is empty")
	ErrAccountPasswdEmpty = errors.New("account password is empty")
	ErrAccountIDEmpty     = errors.New("account id is empty")
	ErrBalanceNegative    = errors.New("account balance is negative")
)

// Account is a user ledger record: the spendable balance plus the
// informational total-earned accumulator. Balance must stay non-negative
// at all observable times; the storage layer enforces that on every debit.
type Account struct {
	id               uuid.UUID
	login            string
	passwordHash     string
	balance          decimal.Decimal
	totalEarned      decimal.Decimal
	registrationPaid bool
	lastBonusCycle   int64
	createdAt        time.Time
}

// NewAccount creates a fresh, unactivated account with a zero balance.
// The signup bonus is credited later, when the registration fee payment
// is confirmed and registrationPaid flips to true.
func NewAccount(login, password string) (*Account, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := getPasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("getPasswordHash: %w", err)
	}

	return &Account{
		id:           uuid.New(),
		login:        login,
		passwordHash: passwordHash,
		balance:      decimal.Zero,
		totalEarned:  decimal.Zero,
		createdAt:    time.Now(),
	}, nil
}

// RestoreAccount rebuilds an account from stored state.
func RestoreAccount(
	id uuid.UUID,
	login, passwordHash string,
	balance, totalEarned decimal.Decimal,
	registrationPaid bool,
	lastBonusCycle int64,
	createdAt time.Time,
) (*Account, error) {
	if id == uuid.Nil {
		return nil, ErrAccountIDEmpty
	}

	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if balance.IsNegative() {
		return nil, ErrBalanceNegative
	}

	return &Account{
		id:               id,
		login:            login,
		passwordHash:     passwordHash,
		balance:          balance,
		totalEarned:      totalEarned,
		registrationPaid: registrationPaid,
		lastBonusCycle:   lastBonusCycle,
		createdAt:        createdAt,
	}, nil
}

func (a *Account) ID() uuid.UUID {
	return a.id
}

func (a *Account) Login() string {
	return a.login
}

func (a *Account) PasswordHash() string {
	return a.passwordHash
}

func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

func (a *Account) TotalEarned() decimal.Decimal {
	return a.totalEarned
}

func (a *Account) RegistrationPaid() bool {
	return a.registrationPaid
}

func (a *Account) LastBonusCycle() int64 {
	return a.lastBonusCycle
}

func (a *Account) CreatedAt() time.Time {
	return a.createdAt
}

// AddBalance credits the balance. Positive amounts also accrue the
// total-earned accumulator.
func (a *Account) AddBalance(amount decimal.Decimal) {
	a.balance = a.balance.Add(amount)

	if amount.IsPositive() {
		a.totalEarned = a.totalEarned.Add(amount)
	}
}

func (a *Account) SubBalance(amount decimal.Decimal) {
	a.balance = a.balance.Sub(amount)
}

func (a *Account) SetLastBonusCycle(cycle int64) {
	a.lastBonusCycle = cycle
}

// MarkRegistrationPaid flips the one-way registration flag.
func (a *Account) MarkRegistrationPaid() {
	a.registrationPaid = true
}

func getPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return string(hash), nil
}

func ValidateLogin(login string) error {
	if login == "" {
		return ErrAccountLoginEmpty
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrAccountPasswdEmpty
	}

	return nil
}
