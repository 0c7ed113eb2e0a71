package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskpay/taskpay/internal/auth"
	"github.com/taskpay/taskpay/internal/domain/accounts"
	"github.com/taskpay/taskpay/internal/domain/bankaccounts"
	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/errmsg"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/server/models"
	"github.com/taskpay/taskpay/internal/storage"
)

type Handlers struct {
	storage    storage.Storage
	ledger     *ledger.Ledger
	log        *slog.Logger
	auth       *auth.JWTAuth
	adminCreds *auth.AdminCredentials
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, ledg *ledger.Ledger, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage:    store,
		ledger:     ledg,
		log:        slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		auth:       auth.NewJWTAuth([]byte("")),
		adminCreds: auth.NewAdminCredentials("", ""),
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

func WithAdminCredentials(creds *auth.AdminCredentials) Option {
	return func(h *Handlers) {
		h.adminCreds = creds
	}
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &JSONResponse{
		Error: err.Error(),
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(err.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// handleDomainError maps a ledger or storage error to its specific
// rejection so callers always learn why an operation was refused.
func (h *Handlers) handleDomainError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, slog.Any("error", err))

	switch {
	case errors.Is(err, transactions.ErrAmountNotPositive):
		handleError(w, errmsg.ErrAmountNotPositive)
	case errors.Is(err, storage.ErrAccountNotFound):
		handleError(w, errmsg.ErrAccountNotFound)
	case errors.Is(err, storage.ErrAccountAlreadyExists):
		handleError(w, errmsg.ErrAccountAlreadyExists)
	case errors.Is(err, storage.ErrAccountAlreadyActivated):
		handleError(w, errmsg.ErrAccountAlreadyActivated)
	case errors.Is(err, storage.ErrInsufficientBalance):
		handleError(w, errmsg.ErrInsufficientBalance)
	case errors.Is(err, storage.ErrTaskNotFound):
		handleError(w, errmsg.ErrTaskNotFound)
	case errors.Is(err, storage.ErrTaskAlreadyCompleted):
		handleError(w, errmsg.ErrTaskAlreadyCompleted)
	case errors.Is(err, ledger.ErrTaskInactive):
		handleError(w, errmsg.ErrTaskInactive)
	case errors.Is(err, ledger.ErrBelowMinimumWithdrawal):
		handleError(w, errmsg.ErrBelowMinimumWithdrawal)
	case errors.Is(err, ledger.ErrUnverifiedDestination):
		handleError(w, errmsg.ErrUnverifiedDestination)
	case errors.Is(err, storage.ErrBankAccountNotFound):
		handleError(w, errmsg.ErrBankAccountNotFound)
	case errors.Is(err, storage.ErrTransactionNotFound):
		handleError(w, errmsg.ErrTransactionNotFound)
	case errors.Is(err, storage.ErrTransactionNotPending):
		handleError(w, errmsg.ErrTransactionNotPending)
	case errors.Is(err, storage.ErrRetryExceeded):
		handleError(w, errmsg.ErrRetryExceeded)
	default:
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
	}
}

// accountIDFromContext reads the authenticated account id from the JWT
// sub claim.
func accountIDFromContext(r *http.Request) (uuid.UUID, error) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(token.Subject())
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var payload models.CredentialsRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	acc, err := accounts.NewAccount(payload.Login, payload.Password)
	if err != nil {
		h.log.Error("accounts.NewAccount()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateAccount(r.Context(), acc); err != nil {
		h.handleDomainError(w, "storage.CreateAccount()", err)

		return
	}

	token, err := h.auth.CreateJWTString(acc.ID().String(), auth.RoleUser)
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: token})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var payload models.CredentialsRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	acc, err := h.storage.GetAccountByLogin(r.Context(), payload.Login)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			handleError(w, errmsg.ErrAccountCredentialsInvalid)

			return
		}

		h.handleDomainError(w, "storage.GetAccountByLogin()", err)

		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash()), []byte(payload.Password)); err != nil {
		handleError(w, errmsg.ErrAccountCredentialsInvalid)

		return
	}

	token, err := h.auth.CreateJWTString(acc.ID().String(), auth.RoleUser)
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: token})
}

func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	acc, err := h.storage.GetAccountByID(r.Context(), accountID)
	if err != nil {
		h.handleDomainError(w, "storage.GetAccountByID()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, accountResponse(acc))
}

func accountResponse(acc *accounts.Account) models.AccountResponse {
	return models.AccountResponse{
		ID:               acc.ID(),
		Login:            acc.Login(),
		Balance:          acc.Balance(),
		TotalEarned:      acc.TotalEarned(),
		RegistrationPaid: acc.RegistrationPaid(),
		CreatedAt:        acc.CreatedAt().Format(time.RFC3339),
	}
}

func (h *Handlers) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	txns, err := h.storage.GetTransactionsByAccount(r.Context(), accountID)
	if err != nil {
		h.handleDomainError(w, "storage.GetTransactionsByAccount()", err)

		return
	}

	if len(txns) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.TransactionResponse{})

		return
	}

	handleJSONResponse(w, http.StatusOK, transactionResponses(txns))
}

func transactionResponses(txns []*transactions.Transaction) []models.TransactionResponse {
	resp := make([]models.TransactionResponse, 0, len(txns))

	for _, txn := range txns {
		resp = append(resp, models.TransactionResponse{
			ID:          txn.ID(),
			Kind:        txn.Kind().String(),
			Amount:      txn.Amount(),
			Status:      txn.Status().String(),
			Description: txn.Description(),
			CreatedAt:   txn.CreatedAt().Format(time.RFC3339),
		})
	}

	return resp
}

func (h *Handlers) GetTasks(w http.ResponseWriter, r *http.Request) {
	taskList, err := h.storage.GetActiveTasks(r.Context())
	if err != nil {
		h.handleDomainError(w, "storage.GetActiveTasks()", err)

		return
	}

	if len(taskList) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.TaskResponse{})

		return
	}

	resp := make([]models.TaskResponse, 0, len(taskList))
	for _, task := range taskList {
		resp = append(resp, models.TaskResponse{
			ID:           task.ID(),
			Title:        task.Title(),
			RewardAmount: task.RewardAmount(),
			CreatedAt:    task.CreatedAt().Format(time.RFC3339),
		})
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	record, err := h.ledger.SettleTaskReward(r.Context(), accountID, taskID)
	if err != nil {
		h.handleDomainError(w, "ledger.SettleTaskReward()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, transactionResponses([]*transactions.Transaction{record})[0])
}

func (h *Handlers) ViewAd(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	record, err := h.ledger.SettleAdReward(r.Context(), accountID)
	if err != nil {
		h.handleDomainError(w, "ledger.SettleAdReward()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, transactionResponses([]*transactions.Transaction{record})[0])
}

func (h *Handlers) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	var payload models.DepositRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	record, err := h.ledger.RequestDeposit(r.Context(), accountID, payload.Amount, payload.Reference)
	if err != nil {
		h.handleDomainError(w, "ledger.RequestDeposit()", err)

		return
	}

	handleJSONResponse(w, http.StatusAccepted, transactionResponses([]*transactions.Transaction{record})[0])
}

func (h *Handlers) CreateBankAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	var payload models.BankAccountRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	bankAcc, err := bankaccounts.NewBankAccount(accountID, payload.BankName, payload.AccountNumber, payload.HolderName)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateBankAccount(r.Context(), bankAcc); err != nil {
		h.handleDomainError(w, "storage.CreateBankAccount()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, bankAccountResponse(bankAcc))
}

func bankAccountResponse(acc *bankaccounts.BankAccount) models.BankAccountResponse {
	return models.BankAccountResponse{
		ID:            acc.ID(),
		BankName:      acc.BankName(),
		AccountNumber: acc.AccountNumber(),
		HolderName:    acc.HolderName(),
		Verified:      acc.Verified(),
	}
}

func (h *Handlers) GetBankAccounts(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	bankAccs, err := h.storage.GetBankAccountsByOwner(r.Context(), accountID)
	if err != nil {
		h.handleDomainError(w, "storage.GetBankAccountsByOwner()", err)

		return
	}

	if len(bankAccs) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.BankAccountResponse{})

		return
	}

	resp := make([]models.BankAccountResponse, 0, len(bankAccs))
	for _, acc := range bankAccs {
		resp = append(resp, bankAccountResponse(acc))
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	var payload models.WithdrawalRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	record, err := h.ledger.RequestWithdrawal(r.Context(), accountID, payload.Amount, payload.BankAccountID)
	if err != nil {
		h.handleDomainError(w, "ledger.RequestWithdrawal()", err)

		return
	}

	handleJSONResponse(w, http.StatusAccepted, transactionResponses([]*transactions.Transaction{record})[0])
}

func (h *Handlers) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, err))

		return
	}

	txns, err := h.storage.GetTransactionsByAccount(r.Context(), accountID)
	if err != nil {
		h.handleDomainError(w, "storage.GetTransactionsByAccount()", err)

		return
	}

	withdrawals := make([]*transactions.Transaction, 0)
	for _, txn := range txns {
		if txn.Kind() == transactions.KindWithdrawal {
			withdrawals = append(withdrawals, txn)
		}
	}

	if len(withdrawals) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.TransactionResponse{})

		return
	}

	handleJSONResponse(w, http.StatusOK, transactionResponses(withdrawals))
}
