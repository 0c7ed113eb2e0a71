package payments

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/taskpay/taskpay/internal/httpclient"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/payments/payclient"
	"github.com/taskpay/taskpay/internal/payments/payprocessor"
	"github.com/taskpay/taskpay/internal/storage"
)

// Payments is the deposit confirmation daemon. It periodically asks the
// payment gateway about every pending deposit and settles the finalized
// ones through the ledger.
type Payments struct {
	log          *slog.Logger
	pollInterval time.Duration
	processor    *payprocessor.PaymentProcessor
}

type Config struct {
	logger       *slog.Logger
	pollInterval time.Duration
	gatewayURI   string
}

func NewPayments(store storage.Storage, ledg *ledger.Ledger, opts ...Option) *Payments {
	cfg := &Config{
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		pollInterval: 10 * time.Second,
		gatewayURI:   "http://localhost:8081",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := httpclient.New()
	httpClient.SetBaseURL(cfg.gatewayURI)

	client := payclient.New(
		payclient.WithLogger(cfg.logger),
		payclient.WithClient(httpClient),
	)

	processor := payprocessor.New(
		store,
		ledg,
		client,
		payprocessor.WithLogger(cfg.logger),
	)

	return &Payments{
		log:          cfg.logger.With(slog.String("module", "payments")),
		pollInterval: cfg.pollInterval,
		processor:    processor,
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

func WithGatewayURI(uri string) Option {
	return func(c *Config) {
		c.gatewayURI = uri
	}
}

func (p *Payments) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.log.Info("Start payments daemon")

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Context done, stopping payments daemon")

			return nil

		case <-ticker.C:
			if err := p.processor.Process(ctx); err != nil {
				p.log.Error("processor.Process", slog.Any("error", err))
			}
		}
	}
}
