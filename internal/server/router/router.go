package router

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/taskpay/taskpay/internal/auth"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/server/handlers"
	"github.com/taskpay/taskpay/internal/storage"
)

type Options struct {
	log        *slog.Logger
	secret     []byte
	adminCreds *auth.AdminCredentials
}

func NewRouter(store storage.Storage, ledg *ledger.Ledger, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:        slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		secret:     []byte(""),
		adminCreds: auth.NewAdminCredentials("", ""),
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Logger,
	)

	h := handlers.NewHandlers(store, ledg,
		handlers.WithLogger(rOpts.log),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret)),
		handlers.WithAdminCredentials(rOpts.adminCreds),
	)

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.Register)
		r.Post("/api/user/login", h.Login)
		r.Post("/api/admin/login", h.AdminLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
		)

		r.Get("/api/user/account", h.GetAccount)
		r.Get("/api/user/transactions", h.GetTransactions)
		r.Get("/api/tasks", h.GetTasks)
		r.Post("/api/tasks/{taskID}/complete", h.CompleteTask)
		r.Post("/api/ads/view", h.ViewAd)
		r.Post("/api/user/deposits", h.CreateDeposit)
		r.Get("/api/user/bank-accounts", h.GetBankAccounts)
		r.Post("/api/user/bank-accounts", h.CreateBankAccount)
		r.Get("/api/user/withdrawals", h.GetWithdrawals)
		r.Post("/api/user/withdrawals", h.CreateWithdrawal)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
			requireRole(auth.RoleAdmin),
		)

		r.Get("/api/admin/stats", h.AdminStats)
		r.Get("/api/admin/accounts", h.AdminListAccounts)
		r.Post("/api/admin/accounts/{accountID}/activate", h.AdminActivateAccount)
		r.Post("/api/admin/accounts/{accountID}/adjust", h.AdminAdjustAccount)
		r.Get("/api/admin/withdrawals", h.AdminListPendingWithdrawals)
		r.Post("/api/admin/withdrawals/{transactionID}/approve", h.AdminApproveWithdrawal)
		r.Post("/api/admin/withdrawals/{transactionID}/reject", h.AdminRejectWithdrawal)
		r.Post("/api/admin/tasks", h.AdminCreateTask)
		r.Post("/api/admin/bank-accounts/{bankAccountID}/verify", h.AdminVerifyBankAccount)
	})

	return r
}

// requireRole rejects authenticated requests whose token carries a
// different role claim.
func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

				return
			}

			if got, ok := claims["role"].(string); !ok || got != role {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

func WithAdminCredentials(creds *auth.AdminCredentials) Option {
	return func(o *Options) {
		o.adminCreds = creds
	}
}
