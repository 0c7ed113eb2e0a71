package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskpay/taskpay/internal/auth"
	"github.com/taskpay/taskpay/internal/domain/tasks"
	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/errmsg"
	"github.com/taskpay/taskpay/internal/server/models"
)

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
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

	if !h.adminCreds.Verify(payload.Login, payload.Password) {
		handleError(w, errmsg.ErrAccountCredentialsInvalid)

		return
	}

	token, err := h.auth.CreateJWTString(payload.Login, auth.RoleAdmin)
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: token})
}

func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.ReadSnapshot(r.Context())
	if err != nil {
		h.handleDomainError(w, "ledger.ReadSnapshot()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.StatsResponse{
		Accounts:     stats.Accounts,
		Transactions: stats.Transactions,
		TotalBalance: stats.TotalBalance,
	})
}

func (h *Handlers) AdminListAccounts(w http.ResponseWriter, r *http.Request) {
	accs, err := h.storage.ListAccounts(r.Context())
	if err != nil {
		h.handleDomainError(w, "storage.ListAccounts()", err)

		return
	}

	resp := make([]models.AccountResponse, 0, len(accs))
	for _, acc := range accs {
		resp = append(resp, accountResponse(acc))
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) AdminActivateAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	record, err := h.ledger.ActivateRegistration(r.Context(), accountID)
	if err != nil {
		h.handleDomainError(w, "ledger.ActivateRegistration()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, transactionResponses([]*transactions.Transaction{record})[0])
}

func (h *Handlers) AdminAdjustAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	var payload models.AdjustmentRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	record, err := h.ledger.AdminAdjust(r.Context(), accountID, payload.Amount, payload.Debit, payload.Description)
	if err != nil {
		h.handleDomainError(w, "ledger.AdminAdjust()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, transactionResponses([]*transactions.Transaction{record})[0])
}

func (h *Handlers) AdminListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	txns, err := h.storage.GetTransactionsByKind(r.Context(),
		transactions.KindWithdrawal, transactions.StatusPending)
	if err != nil {
		h.handleDomainError(w, "storage.GetTransactionsByKind()", err)

		return
	}

	if len(txns) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.TransactionResponse{})

		return
	}

	handleJSONResponse(w, http.StatusOK, transactionResponses(txns))
}

func (h *Handlers) AdminApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.resolveWithdrawal(w, r, true)
}

func (h *Handlers) AdminRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.resolveWithdrawal(w, r, false)
}

func (h *Handlers) resolveWithdrawal(w http.ResponseWriter, r *http.Request, approve bool) {
	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.ledger.ResolveWithdrawal(r.Context(), transactionID, approve); err != nil {
		h.handleDomainError(w, "ledger.ResolveWithdrawal()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) AdminCreateTask(w http.ResponseWriter, r *http.Request) {
	var payload models.CreateTaskRequest

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	task, err := tasks.NewTask(payload.Title, payload.RewardAmount)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateTask(r.Context(), task); err != nil {
		h.handleDomainError(w, "storage.CreateTask()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.TaskResponse{
		ID:           task.ID(),
		Title:        task.Title(),
		RewardAmount: task.RewardAmount(),
	})
}

func (h *Handlers) AdminVerifyBankAccount(w http.ResponseWriter, r *http.Request) {
	bankAccountID, err := uuid.Parse(chi.URLParam(r, "bankAccountID"))
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.VerifyBankAccount(r.Context(), bankAccountID); err != nil {
		h.handleDomainError(w, "storage.VerifyBankAccount()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}
