package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taskpay/taskpay/internal/domain/accounts"
	"github.com/taskpay/taskpay/internal/domain/bankaccounts"
	"github.com/taskpay/taskpay/internal/domain/tasks"
	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

type AccountStore struct {
	accounts map[uuid.UUID]*accounts.Account
	byLogin  map[string]uuid.UUID
	mu       sync.Mutex
}

type TransactionStore struct {
	transactions map[uuid.UUID]*transactions.Transaction
	mu           sync.Mutex
}

type TaskStore struct {
	tasks       map[uuid.UUID]*tasks.Task
	completions map[uuid.UUID]map[uuid.UUID]struct{}
	mu          sync.Mutex
}

type BankAccountStore struct {
	bankAccounts map[uuid.UUID]*bankaccounts.BankAccount
	mu           sync.Mutex
}

// Storage is the in-memory ledger store. Every balance mutation takes
// the account store lock for the whole read-check-write-insert sequence,
// which serializes concurrent settlements on the same account.
type Storage struct {
	AccountStore     AccountStore
	TransactionStore TransactionStore
	TaskStore        TaskStore
	BankAccountStore BankAccountStore
}

func NewStorage() *Storage {
	return &Storage{
		AccountStore: AccountStore{
			accounts: make(map[uuid.UUID]*accounts.Account),
			byLogin:  make(map[string]uuid.UUID),
		},
		TransactionStore: TransactionStore{
			transactions: make(map[uuid.UUID]*transactions.Transaction),
		},
		TaskStore: TaskStore{
			tasks:       make(map[uuid.UUID]*tasks.Task),
			completions: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		},
		BankAccountStore: BankAccountStore{
			bankAccounts: make(map[uuid.UUID]*bankaccounts.BankAccount),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateAccount(_ context.Context, acc *accounts.Account) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	if _, ok := s.AccountStore.byLogin[acc.Login()]; ok {
		return storage.ErrAccountAlreadyExists
	}

	s.AccountStore.accounts[acc.ID()] = acc
	s.AccountStore.byLogin[acc.Login()] = acc.ID()

	return nil
}

func (s *Storage) GetAccountByID(_ context.Context, id uuid.UUID) (*accounts.Account, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	acc, ok := s.AccountStore.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}

	return acc, nil
}

func (s *Storage) GetAccountByLogin(_ context.Context, login string) (*accounts.Account, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	id, ok := s.AccountStore.byLogin[login]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}

	return s.AccountStore.accounts[id], nil
}

func (s *Storage) ListAccounts(_ context.Context) ([]*accounts.Account, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	accs := make([]*accounts.Account, 0, len(s.AccountStore.accounts))
	for _, acc := range s.AccountStore.accounts {
		accs = append(accs, acc)
	}

	sort.Slice(accs, func(i, j int) bool {
		return accs[i].CreatedAt().Before(accs[j].CreatedAt())
	})

	return accs, nil
}

func (s *Storage) ActivateAccount(_ context.Context, accountID uuid.UUID, bonus decimal.Decimal, record *transactions.Transaction) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	acc, ok := s.AccountStore.accounts[accountID]
	if !ok {
		return storage.ErrAccountNotFound
	}

	if acc.RegistrationPaid() {
		return storage.ErrAccountAlreadyActivated
	}

	acc.MarkRegistrationPaid()
	acc.AddBalance(bonus)

	s.TransactionStore.transactions[record.ID()] = record

	return nil
}

func (s *Storage) ApplyDelta(_ context.Context, accountID uuid.UUID, delta decimal.Decimal, record *transactions.Transaction) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	return s.applyDeltaLocked(accountID, delta, record)
}

// applyDeltaLocked requires both the account and transaction store
// locks to be held.
func (s *Storage) applyDeltaLocked(accountID uuid.UUID, delta decimal.Decimal, record *transactions.Transaction) error {
	acc, ok := s.AccountStore.accounts[accountID]
	if !ok {
		return storage.ErrAccountNotFound
	}

	if delta.IsNegative() && acc.Balance().Add(delta).IsNegative() {
		return storage.ErrInsufficientBalance
	}

	if delta.IsNegative() {
		acc.SubBalance(delta.Neg())
	} else {
		acc.AddBalance(delta)
	}

	s.TransactionStore.transactions[record.ID()] = record

	return nil
}

func (s *Storage) ApplyDailyBonus(_ context.Context, accountID uuid.UUID, cycle int64, delta decimal.Decimal, record *transactions.Transaction) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	acc, ok := s.AccountStore.accounts[accountID]
	if !ok {
		return storage.ErrAccountNotFound
	}

	if acc.LastBonusCycle() >= cycle {
		return storage.ErrBonusAlreadyApplied
	}

	if err := s.applyDeltaLocked(accountID, delta, record); err != nil {
		return err
	}

	acc.SetLastBonusCycle(cycle)

	return nil
}

func (s *Storage) ConfirmDeposit(_ context.Context, transactionID uuid.UUID, netFirst, netReturning decimal.Decimal) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	txn, ok := s.TransactionStore.transactions[transactionID]
	if !ok {
		return storage.ErrTransactionNotFound
	}

	if txn.Kind() != transactions.KindDeposit || txn.Status() != transactions.StatusPending {
		return storage.ErrTransactionNotPending
	}

	acc, ok := s.AccountStore.accounts[txn.AccountID()]
	if !ok {
		return storage.ErrAccountNotFound
	}

	if err := txn.Resolve(transactions.StatusCompleted); err != nil {
		return storage.ErrTransactionNotPending
	}

	// The exemption decision reads total_earned under the store locks,
	// so a credit landing before this point revokes it.
	net := netReturning
	if acc.TotalEarned().IsZero() {
		net = netFirst
	}

	acc.AddBalance(net)

	return nil
}

func (s *Storage) FailDeposit(_ context.Context, transactionID uuid.UUID) error {
	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	txn, ok := s.TransactionStore.transactions[transactionID]
	if !ok {
		return storage.ErrTransactionNotFound
	}

	if txn.Kind() != transactions.KindDeposit || txn.Status() != transactions.StatusPending {
		return storage.ErrTransactionNotPending
	}

	return txn.Resolve(transactions.StatusFailed)
}

func (s *Storage) ResolveWithdrawal(_ context.Context, transactionID uuid.UUID, approve bool, compensation *transactions.Transaction) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	txn, ok := s.TransactionStore.transactions[transactionID]
	if !ok {
		return storage.ErrTransactionNotFound
	}

	if txn.Kind() != transactions.KindWithdrawal || txn.Status() != transactions.StatusPending {
		return storage.ErrTransactionNotPending
	}

	if approve {
		return txn.Resolve(transactions.StatusCompleted)
	}

	if err := txn.Resolve(transactions.StatusFailed); err != nil {
		return storage.ErrTransactionNotPending
	}

	return s.applyDeltaLocked(txn.AccountID(), compensation.Amount(), compensation)
}

func (s *Storage) GetTransaction(_ context.Context, id uuid.UUID) (*transactions.Transaction, error) {
	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	txn, ok := s.TransactionStore.transactions[id]
	if !ok {
		return nil, storage.ErrTransactionNotFound
	}

	return txn, nil
}

func (s *Storage) GetTransactionsByAccount(_ context.Context, accountID uuid.UUID) ([]*transactions.Transaction, error) {
	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	var txns []*transactions.Transaction
	for _, txn := range s.TransactionStore.transactions {
		if txn.AccountID() == accountID {
			txns = append(txns, txn)
		}
	}

	sort.Slice(txns, func(i, j int) bool {
		return txns[i].CreatedAt().After(txns[j].CreatedAt())
	})

	return txns, nil
}

func (s *Storage) GetTransactionsByKind(_ context.Context, kind transactions.Kind, statuses ...transactions.Status) ([]*transactions.Transaction, error) {
	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	wanted := make(map[transactions.Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	var txns []*transactions.Transaction
	for _, txn := range s.TransactionStore.transactions {
		if txn.Kind() != kind {
			continue
		}

		if len(wanted) > 0 {
			if _, ok := wanted[txn.Status()]; !ok {
				continue
			}
		}

		txns = append(txns, txn)
	}

	sort.Slice(txns, func(i, j int) bool {
		return txns[i].CreatedAt().Before(txns[j].CreatedAt())
	})

	return txns, nil
}

func (s *Storage) CreateTask(_ context.Context, task *tasks.Task) error {
	s.TaskStore.mu.Lock()
	defer s.TaskStore.mu.Unlock()

	s.TaskStore.tasks[task.ID()] = task

	return nil
}

func (s *Storage) GetTask(_ context.Context, id uuid.UUID) (*tasks.Task, error) {
	s.TaskStore.mu.Lock()
	defer s.TaskStore.mu.Unlock()

	task, ok := s.TaskStore.tasks[id]
	if !ok {
		return nil, storage.ErrTaskNotFound
	}

	return task, nil
}

func (s *Storage) GetActiveTasks(_ context.Context) ([]*tasks.Task, error) {
	s.TaskStore.mu.Lock()
	defer s.TaskStore.mu.Unlock()

	var active []*tasks.Task
	for _, task := range s.TaskStore.tasks {
		if task.Active() {
			active = append(active, task)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt().Before(active[j].CreatedAt())
	})

	return active, nil
}

func (s *Storage) CompleteTask(_ context.Context, accountID, taskID uuid.UUID, reward decimal.Decimal, record *transactions.Transaction) error {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	s.TaskStore.mu.Lock()
	defer s.TaskStore.mu.Unlock()

	if _, ok := s.TaskStore.tasks[taskID]; !ok {
		return storage.ErrTaskNotFound
	}

	done, ok := s.TaskStore.completions[accountID]
	if !ok {
		done = make(map[uuid.UUID]struct{})
		s.TaskStore.completions[accountID] = done
	}

	if _, ok := done[taskID]; ok {
		return storage.ErrTaskAlreadyCompleted
	}

	if err := s.applyDeltaLocked(accountID, reward, record); err != nil {
		return err
	}

	done[taskID] = struct{}{}

	return nil
}

func (s *Storage) CreateBankAccount(_ context.Context, acc *bankaccounts.BankAccount) error {
	s.BankAccountStore.mu.Lock()
	defer s.BankAccountStore.mu.Unlock()

	s.BankAccountStore.bankAccounts[acc.ID()] = acc

	return nil
}

func (s *Storage) GetBankAccount(_ context.Context, id uuid.UUID) (*bankaccounts.BankAccount, error) {
	s.BankAccountStore.mu.Lock()
	defer s.BankAccountStore.mu.Unlock()

	acc, ok := s.BankAccountStore.bankAccounts[id]
	if !ok {
		return nil, storage.ErrBankAccountNotFound
	}

	return acc, nil
}

func (s *Storage) GetBankAccountsByOwner(_ context.Context, ownerID uuid.UUID) ([]*bankaccounts.BankAccount, error) {
	s.BankAccountStore.mu.Lock()
	defer s.BankAccountStore.mu.Unlock()

	var accs []*bankaccounts.BankAccount
	for _, acc := range s.BankAccountStore.bankAccounts {
		if acc.OwnerID() == ownerID {
			accs = append(accs, acc)
		}
	}

	sort.Slice(accs, func(i, j int) bool {
		return accs[i].CreatedAt().Before(accs[j].CreatedAt())
	})

	return accs, nil
}

func (s *Storage) VerifyBankAccount(_ context.Context, id uuid.UUID) error {
	s.BankAccountStore.mu.Lock()
	defer s.BankAccountStore.mu.Unlock()

	acc, ok := s.BankAccountStore.bankAccounts[id]
	if !ok {
		return storage.ErrBankAccountNotFound
	}

	acc.MarkVerified()

	return nil
}

func (s *Storage) Stats(_ context.Context) (*storage.Stats, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.TransactionStore.mu.Lock()
	defer s.TransactionStore.mu.Unlock()

	total := decimal.Zero
	for _, acc := range s.AccountStore.accounts {
		total = total.Add(acc.Balance())
	}

	return &storage.Stats{
		Accounts:     int64(len(s.AccountStore.accounts)),
		Transactions: int64(len(s.TransactionStore.transactions)),
		TotalBalance: total,
	}, nil
}
