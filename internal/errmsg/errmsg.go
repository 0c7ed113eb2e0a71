package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)

	ErrAmountNotPositive = NewHTTPError(
		http.StatusBadRequest,
		errors.New("amount must be positive"),
	)
)

var (
	ErrAccountAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("account already exists"),
	)

	ErrAccountNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("account not found"),
	)

	ErrAccountCredentialsInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("account credentials invalid"),
	)

	ErrAccountAlreadyActivated = NewHTTPError(
		http.StatusConflict,
		errors.New("account registration already activated"),
	)

	ErrInsufficientBalance = NewHTTPError(
		http.StatusPaymentRequired,
		errors.New("account balance not enough funds"),
	)
)

var (
	ErrTaskNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("task not found"),
	)

	ErrTaskInactive = NewHTTPError(
		http.StatusConflict,
		errors.New("task is not active"),
	)

	ErrTaskAlreadyCompleted = NewHTTPError(
		http.StatusConflict,
		errors.New("task already completed"),
	)
)

var (
	ErrBelowMinimumWithdrawal = NewHTTPError(
		http.StatusUnprocessableEntity,
		errors.New("withdrawal amount below configured minimum"),
	)

	ErrUnverifiedDestination = NewHTTPError(
		http.StatusUnprocessableEntity,
		errors.New("withdrawal destination not owned or not verified"),
	)

	ErrBankAccountNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("bank account not found"),
	)

	ErrTransactionNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("transaction not found"),
	)

	ErrTransactionNotPending = NewHTTPError(
		http.StatusConflict,
		errors.New("transaction is not pending"),
	)
)

var ErrRetryExceeded = NewHTTPError(
	http.StatusServiceUnavailable,
	errors.New("operation contended, retry later"),
)
