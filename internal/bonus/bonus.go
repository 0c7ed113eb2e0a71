package bonus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/storage"
)

// Bonus is the daily interest daemon. Each pass computes the current
// settlement cycle and offers the bonus to every account; the
// per-account cycle guard in storage makes reruns within the same cycle
// no-ops, so the poll interval can be much shorter than a day without
// double-crediting.
type Bonus struct {
	log          *slog.Logger
	pollInterval time.Duration
	store        storage.Storage
	ledger       *ledger.Ledger
}

type Config struct {
	logger       *slog.Logger
	pollInterval time.Duration
}

func NewBonus(store storage.Storage, ledg *ledger.Ledger, opts ...Option) *Bonus {
	cfg := &Config{
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		pollInterval: 1 * time.Hour,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Bonus{
		log:          cfg.logger.With(slog.String("module", "bonus")),
		pollInterval: cfg.pollInterval,
		store:        store,
		ledger:       ledg,
	}
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.pollInterval = interval
	}
}

func (b *Bonus) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	b.log.Info("Start daily bonus daemon")

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Context done, stopping daily bonus daemon")

			return nil

		case <-ticker.C:
			if err := b.Process(ctx); err != nil {
				b.log.Error("bonus.Process", slog.Any("error", err))
			}
		}
	}
}

// Process runs one settlement pass for the current cycle.
func (b *Bonus) Process(ctx context.Context) error {
	cycle := ledger.CurrentCycle(time.Now())

	accs, err := b.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("store.ListAccounts: %w", err)
	}

	b.log.Info("Start daily bonus processing",
		slog.Int64("cycle", cycle),
		slog.Int("accounts", len(accs)),
	)

	for _, acc := range accs {
		record, err := b.ledger.SettleDailyBonus(ctx, acc.ID(), cycle)
		if err != nil {
			// Ineligible balances and already-settled cycles are the
			// normal case, not failures.
			if errors.Is(err, ledger.ErrBonusNotEligible) ||
				errors.Is(err, storage.ErrBonusAlreadyApplied) {
				continue
			}

			b.log.Error("ledger.SettleDailyBonus", slog.Any("error", err))

			continue
		}

		b.log.Info("Daily bonus settled",
			slog.String("account_id", acc.ID().String()),
			slog.String("amount", record.Amount().String()),
		)
	}

	return nil
}
