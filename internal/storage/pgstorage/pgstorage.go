package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/taskpay/taskpay/internal/domain/accounts"
	"github.com/taskpay/taskpay/internal/domain/bankaccounts"
	"github.com/taskpay/taskpay/internal/domain/tasks"
	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/storage"
	"github.com/taskpay/taskpay/internal/storage/dbmodels"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var _ storage.Storage = (*Storage)(nil)

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return &Storage{
		db: db,
	}, nil
}

func (s *Storage) Bootstrap(ctx context.Context) error {
	provider, err := goose.NewProvider(
		goose.DialectPostgres,
		s.db,
		os.DirFS("internal/storage/pgstorage/migrations"),
	)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}

	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("provider.Up: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// isRetryableError checks if error is retryable: connection failures and
// transaction rollbacks (serialization failures, deadlocks) both qualify.
func isRetryableError(err error) bool {
	// Connection refused error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(pgerrcode.IsConnectionException(pgErr.Code) || pgerrcode.IsTransactionRollback(pgErr.Code)) {
		return true
	}

	return false
}

// WithRetry retries operations in case of retryable errors. When the
// attempts run out on a contention error, storage.ErrRetryExceeded is
// surfaced so the caller knows the operation may be retried as a whole.
func WithRetry(operation func() error) error {
	// Retry count
	retryCount := 3

	// Initial retry wait time
	var retryWaitTime time.Duration

	// Define the interval between retries
	retryWaitInterval := 2

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if isRetryableError(err) {
			retryWaitTime = time.Duration((i*retryWaitInterval + 1)) * time.Second // 1s, 3s, 5s, etc.

			time.Sleep(retryWaitTime)
		} else {
			return fmt.Errorf("%w", err)
		}
	}

	return fmt.Errorf("%w: %w", storage.ErrRetryExceeded, err)
}

func (s *Storage) Ping(ctx context.Context) error {
	err := WithRetry(func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateAccount(ctx context.Context, acc *accounts.Account) error {
	err := WithRetry(func() error {
		query := `INSERT INTO accounts` +
			` (id, login, password_hash, balance, total_earned, registration_paid, last_bonus_cycle, created_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		if _, err := s.db.ExecContext(ctx, query,
			acc.ID(), acc.Login(), acc.PasswordHash(), acc.Balance(), acc.TotalEarned(),
			acc.RegistrationPaid(), acc.LastBonusCycle(), acc.CreatedAt(),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrAccountAlreadyExists
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetAccountByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	query := `SELECT id, login, password_hash, balance, total_earned, registration_paid,` +
		` last_bonus_cycle, created_at FROM accounts WHERE id = $1`

	return s.getAccount(ctx, query, id)
}

func (s *Storage) GetAccountByLogin(ctx context.Context, login string) (*accounts.Account, error) {
	query := `SELECT id, login, password_hash, balance, total_earned, registration_paid,` +
		` last_bonus_cycle, created_at FROM accounts WHERE login = $1`

	return s.getAccount(ctx, query, login)
}

func (s *Storage) getAccount(ctx context.Context, query string, arg any) (*accounts.Account, error) {
	dbAcc := new(dbmodels.Account)

	err := WithRetry(func() error {
		row := s.db.QueryRowContext(ctx, query, arg)

		if err := row.Scan(
			&dbAcc.ID, &dbAcc.Login, &dbAcc.PasswordHash, &dbAcc.Balance, &dbAcc.TotalEarned,
			&dbAcc.RegistrationPaid, &dbAcc.LastBonusCycle, &dbAcc.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrAccountNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	acc, err := accounts.RestoreAccount(
		dbAcc.ID, dbAcc.Login, dbAcc.PasswordHash, dbAcc.Balance, dbAcc.TotalEarned,
		dbAcc.RegistrationPaid, dbAcc.LastBonusCycle, dbAcc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("accounts.RestoreAccount: %w", err)
	}

	return acc, nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]*accounts.Account, error) {
	dbAccs := make([]*dbmodels.Account, 0)

	err := WithRetry(func() error {
		query := `SELECT id, login, password_hash, balance, total_earned, registration_paid,` +
			` last_bonus_cycle, created_at FROM accounts ORDER BY created_at`

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbAcc := new(dbmodels.Account)

			if err := rows.Scan(
				&dbAcc.ID, &dbAcc.Login, &dbAcc.PasswordHash, &dbAcc.Balance, &dbAcc.TotalEarned,
				&dbAcc.RegistrationPaid, &dbAcc.LastBonusCycle, &dbAcc.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbAccs = append(dbAccs, dbAcc)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	accs := make([]*accounts.Account, 0, len(dbAccs))

	for _, dbAcc := range dbAccs {
		acc, err := accounts.RestoreAccount(
			dbAcc.ID, dbAcc.Login, dbAcc.PasswordHash, dbAcc.Balance, dbAcc.TotalEarned,
			dbAcc.RegistrationPaid, dbAcc.LastBonusCycle, dbAcc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("accounts.RestoreAccount: %w", err)
		}

		accs = append(accs, acc)
	}

	return accs, nil
}

func (s *Storage) ActivateAccount(ctx context.Context, accountID uuid.UUID, bonus decimal.Decimal, record *transactions.Transaction) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		// One-way flip: the predicate makes a second activation a no-op.
		query := `UPDATE accounts SET registration_paid = TRUE, balance = balance + $1,` +
			` total_earned = total_earned + $1 WHERE id = $2 AND registration_paid = FALSE`

		res, err := tx.ExecContext(ctx, query, bonus, accountID)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if rows == 0 {
			exists, err := s.accountExists(ctx, tx, accountID)
			if err != nil {
				return err
			}

			if !exists {
				return storage.ErrAccountNotFound
			}

			return storage.ErrAccountAlreadyActivated
		}

		if err := insertTransaction(ctx, tx, record); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal, record *transactions.Transaction) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if err := applyDelta(ctx, tx, accountID, delta, record); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// applyDelta performs the balance mutation and the transaction insert
// inside the caller's SQL transaction. The balance predicate makes the
// update conditional: a debit past zero affects no rows and commits
// nothing.
func applyDelta(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, delta decimal.Decimal, record *transactions.Transaction) error {
	query := `UPDATE accounts SET balance = balance + $1,` +
		` total_earned = total_earned + GREATEST($1, 0) WHERE id = $2 AND balance + $1 >= 0`

	res, err := tx.ExecContext(ctx, query, delta, accountID)
	if err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}

	if rows == 0 {
		row := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID)

		var exists bool
		if err := row.Scan(&exists); err != nil {
			return fmt.Errorf("row.Scan: %w", err)
		}

		if !exists {
			return storage.ErrAccountNotFound
		}

		return storage.ErrInsufficientBalance
	}

	return insertTransaction(ctx, tx, record)
}

func (s *Storage) accountExists(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) (bool, error) {
	row := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("row.Scan: %w", err)
	}

	return exists, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, record *transactions.Transaction) error {
	query := `INSERT INTO transactions (id, account_id, kind, amount, status, description, reference, created_at)` +
		` VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := tx.ExecContext(ctx, query,
		record.ID(), record.AccountID(), record.Kind().String(), record.Amount(),
		record.Status().String(), record.Description(), record.Reference(), record.CreatedAt(),
	); err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	return nil
}

func (s *Storage) ApplyDailyBonus(ctx context.Context, accountID uuid.UUID, cycle int64, delta decimal.Decimal, record *transactions.Transaction) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		// The cycle predicate makes the settlement idempotent per
		// (account, cycle).
		query := `UPDATE accounts SET balance = balance + $1, total_earned = total_earned + $1,` +
			` last_bonus_cycle = $2 WHERE id = $3 AND last_bonus_cycle < $2`

		res, err := tx.ExecContext(ctx, query, delta, cycle, accountID)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if rows == 0 {
			exists, err := s.accountExists(ctx, tx, accountID)
			if err != nil {
				return err
			}

			if !exists {
				return storage.ErrAccountNotFound
			}

			return storage.ErrBonusAlreadyApplied
		}

		if err := insertTransaction(ctx, tx, record); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) ConfirmDeposit(ctx context.Context, transactionID uuid.UUID, netFirst, netReturning decimal.Decimal) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		accountID, err := resolvePending(ctx, tx, transactionID, transactions.KindDeposit, transactions.StatusCompleted)
		if err != nil {
			return err
		}

		// The CASE reads total_earned from the row being updated, so the
		// first-deposit exemption is decided inside the statement.
		query := `UPDATE accounts SET` +
			` balance = balance + CASE WHEN total_earned = 0 THEN $1 ELSE $2 END,` +
			` total_earned = total_earned + CASE WHEN total_earned = 0 THEN $1 ELSE $2 END` +
			` WHERE id = $3`

		if _, err := tx.ExecContext(ctx, query, netFirst, netReturning, accountID); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) FailDeposit(ctx context.Context, transactionID uuid.UUID) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := resolvePending(ctx, tx, transactionID, transactions.KindDeposit, transactions.StatusFailed); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// resolvePending advances a pending transaction of the given kind to a
// final status and returns the owning account id. The status predicate
// keeps the transition one-shot under concurrency.
func resolvePending(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID, kind transactions.Kind, status transactions.Status) (uuid.UUID, error) {
	query := `UPDATE transactions SET status = $1 WHERE id = $2 AND kind = $3 AND status = $4 RETURNING account_id`

	row := tx.QueryRowContext(ctx, query,
		status.String(), transactionID, kind.String(), transactions.StatusPending.String())

	var accountID uuid.UUID
	if err := row.Scan(&accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			exists := false

			existsRow := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, transactionID)
			if err := existsRow.Scan(&exists); err != nil {
				return uuid.Nil, fmt.Errorf("row.Scan: %w", err)
			}

			if !exists {
				return uuid.Nil, storage.ErrTransactionNotFound
			}

			return uuid.Nil, storage.ErrTransactionNotPending
		}

		return uuid.Nil, fmt.Errorf("row.Scan: %w", err)
	}

	return accountID, nil
}

func (s *Storage) ResolveWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool, compensation *transactions.Transaction) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		status := transactions.StatusCompleted
		if !approve {
			status = transactions.StatusFailed
		}

		accountID, err := resolvePending(ctx, tx, transactionID, transactions.KindWithdrawal, status)
		if err != nil {
			return err
		}

		if !approve {
			// Rejection restores the balance with a fresh compensating
			// credit; the original record keeps its amount.
			if err := applyDelta(ctx, tx, accountID, compensation.Amount(), compensation); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetTransaction(ctx context.Context, id uuid.UUID) (*transactions.Transaction, error) {
	dbTxn := new(dbmodels.Transaction)

	err := WithRetry(func() error {
		query := `SELECT id, account_id, kind, amount, status, description, reference, created_at` +
			` FROM transactions WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := row.Scan(
			&dbTxn.ID, &dbTxn.AccountID, &dbTxn.Kind, &dbTxn.Amount,
			&dbTxn.Status, &dbTxn.Description, &dbTxn.Reference, &dbTxn.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrTransactionNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return restoreTransaction(dbTxn)
}

func restoreTransaction(dbTxn *dbmodels.Transaction) (*transactions.Transaction, error) {
	txn, err := transactions.RestoreTransaction(
		dbTxn.ID, dbTxn.AccountID,
		transactions.Kind(dbTxn.Kind), dbTxn.Amount, transactions.Status(dbTxn.Status),
		dbTxn.Description, dbTxn.Reference, dbTxn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("transactions.RestoreTransaction: %w", err)
	}

	return txn, nil
}

func (s *Storage) GetTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]*transactions.Transaction, error) {
	query := `SELECT id, account_id, kind, amount, status, description, reference, created_at` +
		` FROM transactions WHERE account_id = $1 ORDER BY created_at DESC`

	return s.queryTransactions(ctx, query, accountID)
}

func (s *Storage) GetTransactionsByKind(ctx context.Context, kind transactions.Kind, statuses ...transactions.Status) ([]*transactions.Transaction, error) {
	query := `SELECT id, account_id, kind, amount, status, description, reference, created_at` +
		` FROM transactions WHERE kind = $1`

	args := []any{kind.String()}

	if len(statuses) > 0 {
		statusArgs := make([]string, 0, len(statuses))
		for _, status := range statuses {
			statusArgs = append(statusArgs, status.String())
		}

		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusArgs))
	}

	query += ` ORDER BY created_at`

	return s.queryTransactions(ctx, query, args...)
}

func (s *Storage) queryTransactions(ctx context.Context, query string, args ...any) ([]*transactions.Transaction, error) {
	dbTxns := make([]*dbmodels.Transaction, 0)

	err := WithRetry(func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbTxn := new(dbmodels.Transaction)

			if err := rows.Scan(
				&dbTxn.ID, &dbTxn.AccountID, &dbTxn.Kind, &dbTxn.Amount,
				&dbTxn.Status, &dbTxn.Description, &dbTxn.Reference, &dbTxn.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbTxns = append(dbTxns, dbTxn)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	txns := make([]*transactions.Transaction, 0, len(dbTxns))

	for _, dbTxn := range dbTxns {
		txn, err := restoreTransaction(dbTxn)
		if err != nil {
			return nil, err
		}

		txns = append(txns, txn)
	}

	return txns, nil
}

func (s *Storage) CreateTask(ctx context.Context, task *tasks.Task) error {
	err := WithRetry(func() error {
		query := `INSERT INTO tasks (id, title, reward_amount, active, created_at) VALUES ($1, $2, $3, $4, $5)`

		if _, err := s.db.ExecContext(ctx, query,
			task.ID(), task.Title(), task.RewardAmount(), task.Active(), task.CreatedAt(),
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetTask(ctx context.Context, id uuid.UUID) (*tasks.Task, error) {
	dbTask := new(dbmodels.Task)

	err := WithRetry(func() error {
		query := `SELECT id, title, reward_amount, active, created_at FROM tasks WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := row.Scan(
			&dbTask.ID, &dbTask.Title, &dbTask.RewardAmount, &dbTask.Active, &dbTask.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrTaskNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	task, err := tasks.RestoreTask(dbTask.ID, dbTask.Title, dbTask.RewardAmount, dbTask.Active, dbTask.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("tasks.RestoreTask: %w", err)
	}

	return task, nil
}

func (s *Storage) GetActiveTasks(ctx context.Context) ([]*tasks.Task, error) {
	dbTasks := make([]*dbmodels.Task, 0)

	err := WithRetry(func() error {
		query := `SELECT id, title, reward_amount, active, created_at FROM tasks WHERE active ORDER BY created_at`

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbTask := new(dbmodels.Task)

			if err := rows.Scan(
				&dbTask.ID, &dbTask.Title, &dbTask.RewardAmount, &dbTask.Active, &dbTask.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbTasks = append(dbTasks, dbTask)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	taskList := make([]*tasks.Task, 0, len(dbTasks))

	for _, dbTask := range dbTasks {
		task, err := tasks.RestoreTask(dbTask.ID, dbTask.Title, dbTask.RewardAmount, dbTask.Active, dbTask.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("tasks.RestoreTask: %w", err)
		}

		taskList = append(taskList, task)
	}

	return taskList, nil
}

func (s *Storage) CompleteTask(ctx context.Context, accountID, taskID uuid.UUID, reward decimal.Decimal, record *transactions.Transaction) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		// The primary key on (account_id, task_id) is the duplicate
		// completion check.
		query := `INSERT INTO task_completions (account_id, task_id) VALUES ($1, $2)`

		if _, err := tx.ExecContext(ctx, query, accountID, taskID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				switch pgErr.Code {
				case pgerrcode.UniqueViolation:
					return storage.ErrTaskAlreadyCompleted
				case pgerrcode.ForeignKeyViolation:
					return storage.ErrTaskNotFound
				}
			}

			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := applyDelta(ctx, tx, accountID, reward, record); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateBankAccount(ctx context.Context, acc *bankaccounts.BankAccount) error {
	err := WithRetry(func() error {
		query := `INSERT INTO bank_accounts (id, owner_id, bank_name, account_number, holder_name, verified, created_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := s.db.ExecContext(ctx, query,
			acc.ID(), acc.OwnerID(), acc.BankName(), acc.AccountNumber(),
			acc.HolderName(), acc.Verified(), acc.CreatedAt(),
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetBankAccount(ctx context.Context, id uuid.UUID) (*bankaccounts.BankAccount, error) {
	dbAcc := new(dbmodels.BankAccount)

	err := WithRetry(func() error {
		query := `SELECT id, owner_id, bank_name, account_number, holder_name, verified, created_at` +
			` FROM bank_accounts WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := row.Scan(
			&dbAcc.ID, &dbAcc.OwnerID, &dbAcc.BankName, &dbAcc.AccountNumber,
			&dbAcc.HolderName, &dbAcc.Verified, &dbAcc.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBankAccountNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	acc, err := bankaccounts.RestoreBankAccount(
		dbAcc.ID, dbAcc.OwnerID, dbAcc.BankName, dbAcc.AccountNumber,
		dbAcc.HolderName, dbAcc.Verified, dbAcc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("bankaccounts.RestoreBankAccount: %w", err)
	}

	return acc, nil
}

func (s *Storage) GetBankAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*bankaccounts.BankAccount, error) {
	dbAccs := make([]*dbmodels.BankAccount, 0)

	err := WithRetry(func() error {
		query := `SELECT id, owner_id, bank_name, account_number, holder_name, verified, created_at` +
			` FROM bank_accounts WHERE owner_id = $1 ORDER BY created_at`

		rows, err := s.db.QueryContext(ctx, query, ownerID)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbAcc := new(dbmodels.BankAccount)

			if err := rows.Scan(
				&dbAcc.ID, &dbAcc.OwnerID, &dbAcc.BankName, &dbAcc.AccountNumber,
				&dbAcc.HolderName, &dbAcc.Verified, &dbAcc.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbAccs = append(dbAccs, dbAcc)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	accs := make([]*bankaccounts.BankAccount, 0, len(dbAccs))

	for _, dbAcc := range dbAccs {
		acc, err := bankaccounts.RestoreBankAccount(
			dbAcc.ID, dbAcc.OwnerID, dbAcc.BankName, dbAcc.AccountNumber,
			dbAcc.HolderName, dbAcc.Verified, dbAcc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("bankaccounts.RestoreBankAccount: %w", err)
		}

		accs = append(accs, acc)
	}

	return accs, nil
}

func (s *Storage) VerifyBankAccount(ctx context.Context, id uuid.UUID) error {
	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE bank_accounts SET verified = TRUE WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if rows == 0 {
			return storage.ErrBankAccountNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// Stats runs a single aggregate query against the live tables. It takes
// no locks beyond the statement itself; the snapshot may be stale by the
// time it is read, which is acceptable for the monitoring view.
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := new(storage.Stats)

	err := WithRetry(func() error {
		query := `SELECT` +
			` (SELECT COUNT(*) FROM accounts),` +
			` (SELECT COUNT(*) FROM transactions),` +
			` (SELECT COALESCE(SUM(balance), 0) FROM accounts)`

		row := s.db.QueryRowContext(ctx, query)

		if err := row.Scan(&stats.Accounts, &stats.Transactions, &stats.TotalBalance); err != nil {
			return fmt.Errorf("row.Scan: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}
