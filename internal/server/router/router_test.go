package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpay/taskpay/internal/auth"
	"github.com/taskpay/taskpay/internal/domain/tasks"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/storage"
	"github.com/taskpay/taskpay/internal/storage/inmemory"
)

func newTestServer(t *testing.T) (*httptest.Server, storage.Storage) {
	t.Helper()

	store := storage.NewStorage(inmemory.NewStorage())
	ledg := ledger.NewLedger(store)

	r := NewRouter(store, ledg,
		WithSecret([]byte("testsecret")),
		WithAdminCredentials(auth.NewAdminCredentials("admin", "adminpass")),
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv, store
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, raw
}

func extractToken(t *testing.T, raw []byte) string {
	t.Helper()

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotEmpty(t, body.Message)

	return body.Message
}

func TestRouter_RegisterAndGetAccount(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/user/register", "", map[string]string{
		"login":    "alice",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token := extractToken(t, raw)

	resp, raw = doJSON(t, http.MethodGet, srv.URL+"/api/user/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var account struct {
		Login            string `json:"login"`
		Balance          string `json:"balance"`
		RegistrationPaid bool   `json:"registration_paid"`
	}
	require.NoError(t, json.Unmarshal(raw, &account))
	assert.Equal(t, "alice", account.Login)
	assert.False(t, account.RegistrationPaid)

	// Duplicate login is rejected.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/user/register", "", map[string]string{
		"login":    "alice",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_Login(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/user/register", "", map[string]string{
		"login":    "bob",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/user/login", "", map[string]string{
		"login":    "bob",
		"password": "password",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/user/login", "", map[string]string{
		"login":    "bob",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_AuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/user/account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/user/account", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_AdminRoleGate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/user/register", "", map[string]string{
		"login":    "carol",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	userToken := extractToken(t, raw)

	// A user token never opens admin routes.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/admin/login", "", map[string]string{
		"login":    "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = doJSON(t, http.MethodPost, srv.URL+"/api/admin/login", "", map[string]string{
		"login":    "admin",
		"password": "adminpass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminToken := extractToken(t, raw)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/admin/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_TaskCompletionFlow(t *testing.T) {
	srv, store := newTestServer(t)

	task, err := tasks.NewTask("watch tutorial", decimal.NewFromInt(250))
	require.NoError(t, err)
	require.NoError(t, store.CreateTask(context.Background(), task))

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/user/register", "", map[string]string{
		"login":    "dave",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := extractToken(t, raw)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/tasks/"+task.ID().String()+"/complete", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The same task cannot be completed twice.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/tasks/"+task.ID().String()+"/complete", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, raw = doJSON(t, http.MethodGet, srv.URL+"/api/user/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var account struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(raw, &account))
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(250)),
		"got balance %s", account.Balance)
}

func TestRouter_DepositAmountValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/user/register", "", map[string]string{
		"login":    "frank",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := extractToken(t, raw)

	// A non-positive amount is a client error, not a server one.
	for _, amount := range []string{"0", "-10"} {
		resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/user/deposits", token, map[string]any{
			"amount":    amount,
			"reference": "pay-900",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "amount %s", amount)
	}
}

func TestRouter_WithdrawalAdmission(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/api/user/register", "", map[string]string{
		"login":    "erin",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := extractToken(t, raw)

	resp, raw = doJSON(t, http.MethodPost, srv.URL+"/api/user/bank-accounts", token, map[string]string{
		"bank_name":      "First National",
		"account_number": "4242424242",
		"holder_name":    "Erin Tester",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var bankAccount struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &bankAccount))

	// Below the minimum: rejected with 422 before any balance check.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/user/withdrawals", token, map[string]any{
		"amount":          "100",
		"bank_account_id": bankAccount.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// At the minimum but the destination is not verified yet.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/user/withdrawals", token, map[string]any{
		"amount":          "50000",
		"bank_account_id": bankAccount.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
