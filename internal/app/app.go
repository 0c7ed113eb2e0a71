package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskpay/taskpay/internal/auth"
	"github.com/taskpay/taskpay/internal/bonus"
	"github.com/taskpay/taskpay/internal/config"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/logger"
	"github.com/taskpay/taskpay/internal/payments"
	"github.com/taskpay/taskpay/internal/server"
	"github.com/taskpay/taskpay/internal/storage"
	"github.com/taskpay/taskpay/internal/storage/inmemory"
	"github.com/taskpay/taskpay/internal/storage/pgstorage"
)

type Application struct {
	log      *slog.Logger
	store    storage.Storage
	server   *server.Server
	payments *payments.Payments
	bonus    *bonus.Bonus
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logger.LogFormatJSON),
		logger.WithAddSource(false),
	)

	store, err := newStorage(cfg, logg)
	if err != nil {
		return nil, err
	}

	ledg := ledger.NewLedger(store,
		ledger.WithLogger(logg),
		ledger.WithPolicy(newPolicy(cfg)),
	)

	srv, err := server.NewServer(store, ledg,
		server.WithServerAddr(cfg.ServerAddr),
		server.WithJWTSecretKey([]byte(cfg.JWTSecretKey)),
		server.WithAdminCredentials(auth.NewAdminCredentials(cfg.AdminLogin, cfg.AdminPassword)),
		server.WithLogger(logg),
	)
	if err != nil {
		return nil, fmt.Errorf("server.NewServer: %w", err)
	}

	pay := payments.NewPayments(store, ledg,
		payments.WithLogger(logg),
		payments.WithGatewayURI(cfg.GatewayURI),
		payments.WithPollInterval(cfg.GatewayPollInterval),
	)

	bon := bonus.NewBonus(store, ledg,
		bonus.WithLogger(logg),
		bonus.WithPollInterval(cfg.BonusPollInterval),
	)

	return &Application{
		log:      logg,
		store:    store,
		server:   srv,
		payments: pay,
		bonus:    bon,
	}, nil
}

func newStorage(cfg config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.DatabaseURI == "" {
		log.Info("Using in-memory storage")

		return storage.NewStorage(inmemory.NewStorage()), nil
	}

	pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pgstore.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("pgstorage.Bootstrap: %w", err)
	}

	log.Info("Using postgres storage")

	return storage.NewStorage(pgstore), nil
}

func newPolicy(cfg config.Config) ledger.Policy {
	return ledger.Policy{
		SignupBonus:         decimal.NewFromFloat(cfg.SignupBonus),
		MinWithdrawal:       decimal.NewFromFloat(cfg.MinWithdrawal),
		AdRewardMin:         cfg.AdRewardMin,
		AdRewardMax:         cfg.AdRewardMax,
		BonusTierStep:       decimal.NewFromFloat(cfg.BonusTierStep),
		BonusTierRate:       decimal.NewFromFloat(cfg.BonusTierRate),
		DepositTaxRate:      decimal.NewFromFloat(cfg.DepositTaxRate),
		DepositTaxExemption: decimal.NewFromFloat(cfg.DepositTaxExemption),
	}
}

func (a *Application) Run() error {
	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.payments.Run(ctx); err != nil {
			errChan <- fmt.Errorf("payments.Run: %w", err)
		}
	}()

	go func() {
		if err := a.bonus.Run(ctx); err != nil {
			errChan <- fmt.Errorf("bonus.Run: %w", err)
		}
	}()

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err := <-errChan:
			return err

		case <-quit:
			a.log.Info("Gracefully shutting down application...")

			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()

			if err := a.server.Shutdown(shutdownCtx); err != nil {
				a.log.Error("server.Shutdown", slog.Any("error", err))
			}

			if err := a.store.Close(); err != nil {
				a.log.Error("store.Close", slog.Any("error", err))
			}

			return nil
		}
	}
}
