package payprocessor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpay/taskpay/internal/domain/accounts"
	"github.com/taskpay/taskpay/internal/domain/transactions"
	"github.com/taskpay/taskpay/internal/httpclient"
	"github.com/taskpay/taskpay/internal/ledger"
	"github.com/taskpay/taskpay/internal/payments/payclient"
	"github.com/taskpay/taskpay/internal/storage"
	"github.com/taskpay/taskpay/internal/storage/inmemory"
)

func newGateway(t *testing.T, statuses map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/payments/", func(w http.ResponseWriter, r *http.Request) {
		reference := r.URL.Path[len("/api/payments/"):]

		status, ok := statuses[reference]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.Header().Set("content-type", "application/json")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"reference": reference,
			"status":    status,
			"amount":    "8000",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestPaymentProcessor_Process(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStorage(inmemory.NewStorage())
	ledg := ledger.NewLedger(store)

	acc, err := accounts.NewAccount("user-"+uuid.NewString(), "password")
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, acc))

	confirmed, err := ledg.RequestDeposit(ctx, acc.ID(), decimal.NewFromInt(8000), "pay-ok")
	require.NoError(t, err)

	failed, err := ledg.RequestDeposit(ctx, acc.ID(), decimal.NewFromInt(8000), "pay-bad")
	require.NoError(t, err)

	waiting, err := ledg.RequestDeposit(ctx, acc.ID(), decimal.NewFromInt(8000), "pay-wait")
	require.NoError(t, err)

	gateway := newGateway(t, map[string]string{
		"pay-ok":   "SUCCESS",
		"pay-bad":  "FAILED",
		"pay-wait": "PENDING",
	})

	client := httpclient.New()
	client.SetBaseURL(gateway.URL)

	processor := New(store, ledg, payclient.New(payclient.WithClient(client)))

	require.NoError(t, processor.Process(ctx))

	// Only the first deposit on a fresh account gets the tax exemption;
	// the failed and pending ones move nothing.
	got, err := store.GetAccountByID(ctx, acc.ID())
	require.NoError(t, err)
	assert.True(t, got.Balance().Equal(decimal.NewFromInt(7910)),
		"got balance %s", got.Balance())

	stored, err := store.GetTransaction(ctx, confirmed.ID())
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusCompleted, stored.Status())

	stored, err = store.GetTransaction(ctx, failed.ID())
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusFailed, stored.Status())

	// Still pending at the gateway: left for the next pass.
	stored, err = store.GetTransaction(ctx, waiting.ID())
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusPending, stored.Status())
}
