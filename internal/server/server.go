package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/taskpay/taskpay/internal/auth"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/server/router"
	"github.com/taskpay/taskpay/internal/storage"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

type config struct {
	serverAddr   string
	jwtSecretKey []byte
	adminCreds   *auth.AdminCredentials
	logger       *slog.Logger
}

func NewServer(store storage.Storage, ledg *ledger.Ledger, opts ...Option) (*Server, error) {
	cfg := &config{
		serverAddr:   "localhost:8080",
		jwtSecretKey: []byte(""),
		adminCreds:   auth.NewAdminCredentials("", ""),
		logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := router.NewRouter(store, ledg,
		router.WithLogger(cfg.logger),
		router.WithSecret(cfg.jwtSecretKey),
		router.WithAdminCredentials(cfg.adminCreds),
	)

	srv := &http.Server{
		Addr:              cfg.serverAddr,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return &Server{
		srv: srv,
		log: cfg.logger,
	}, nil
}

type Option func(c *config)

func WithServerAddr(addr string) Option {
	return func(c *config) {
		c.serverAddr = addr
	}
}

func WithJWTSecretKey(secret []byte) Option {
	return func(c *config) {
		c.jwtSecretKey = secret
	}
}

func WithAdminCredentials(creds *auth.AdminCredentials) Option {
	return func(c *config) {
		c.adminCreds = creds
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info(fmt.Sprintf("Starting server on %s", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	return nil
}
