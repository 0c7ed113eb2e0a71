package payprocessor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/payments/payclient"
	"github.com/taskpay/taskpay/internal/storage"
)

// PaymentProcessor resolves pending deposits against the payment
// gateway: confirmed payments are settled through the ledger, failed
// ones are marked failed. A payment still pending at the gateway is
// picked up again on the next pass.
type PaymentProcessor struct {
	log       *slog.Logger
	storage   storage.Storage
	ledger    *ledger.Ledger
	payclient *payclient.PaymentClient
}

type Config struct {
	logger *slog.Logger
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func New(store storage.Storage, ledg *ledger.Ledger, client *payclient.PaymentClient, opts ...Option) *PaymentProcessor {
	cfg := &Config{
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &PaymentProcessor{
		log:       cfg.logger.With(slog.String("module", "payment_processor")),
		storage:   store,
		ledger:    ledg,
		payclient: client,
	}
}

func (p *PaymentProcessor) Process(ctx context.Context) error {
	p.log.Info("Start pending deposits processing")

	// Get unresolved deposits
	txns, err := p.storage.GetTransactionsByKind(ctx, transactions.KindDeposit, transactions.StatusPending)
	if err != nil {
		return fmt.Errorf("storage.GetTransactionsByKind: %w", err)
	}

	if len(txns) == 0 {
		p.log.Info("No pending deposits, stopping processing")

		return nil
	}

	txnCh := transactionGenerator(ctx, txns)

	p.transactionProcessor(ctx, txnCh)

	return nil
}

func transactionGenerator(ctx context.Context, txns []*transactions.Transaction) chan *transactions.Transaction {
	txnCh := make(chan *transactions.Transaction)

	go func() {
		defer close(txnCh)

		for _, txn := range txns {
			select {
			case <-ctx.Done():
				return
			case txnCh <- txn:
			}
		}
	}()

	return txnCh
}

func (p *PaymentProcessor) transactionProcessor(ctx context.Context, txnCh chan *transactions.Transaction) {
	poolSize := 1

	wg := &sync.WaitGroup{}

	// Spawn workers
	for w := 1; w <= poolSize; w++ {
		wg.Add(1)
		go p.transactionProcessorWorker(ctx, wg, txnCh)
	}

	// Wait for workers
	wg.Wait()
}

func (p *PaymentProcessor) transactionProcessorWorker(ctx context.Context, wg *sync.WaitGroup, txnCh chan *transactions.Transaction) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Context done, stopping processing")

			return

		case txn, ok := <-txnCh:
			if !ok {
				p.log.Info("Transactions channel closed, stopping processing")

				return
			}

			p.log.Info("Processing deposit", slog.String("transaction_id", txn.ID().String()))

			payment, err := p.payclient.GetPayment(ctx, txn.Reference())
			if err != nil {
				p.log.Error("payclient.GetPayment()", slog.Any("error", err))

				continue
			}

			if !payment.Final() {
				p.log.Info("Payment is not finalized yet in gateway",
					slog.String("reference", txn.Reference()))

				continue
			}

			switch payment.Status() {
			case payclient.PaymentStatusSuccess:
				if err := p.ledger.ConfirmDeposit(ctx, txn.ID()); err != nil {
					p.log.Error("ledger.ConfirmDeposit()", slog.Any("error", err))

					continue
				}

			case payclient.PaymentStatusFailed, payclient.PaymentStatusAbandoned:
				if err := p.ledger.FailDeposit(ctx, txn.ID()); err != nil {
					p.log.Error("ledger.FailDeposit()", slog.Any("error", err))

					continue
				}
			}

			p.log.Info("Deposit resolved",
				slog.String("transaction_id", txn.ID().String()),
				slog.String("reference", txn.Reference()),
				slog.String("payment_status", string(payment.Status())),
			)
		}
	}
}
