package payclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"

	"github.com/taskpay/taskpay/internal/httpclient"
)

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrSomethingWentWrong = errors.New("something went wrong")
)

// PaymentClient queries the payment gateway for the state of a payment
// by its reference.
type PaymentClient struct {
	log    *slog.Logger
	client *resty.Client
}

func New(opts ...Option) *PaymentClient {
	payClient := &PaymentClient{
		log:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(payClient)
	}

	return payClient
}

type Option func(p *PaymentClient)

func WithLogger(logger *slog.Logger) Option {
	return func(p *PaymentClient) {
		p.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(p *PaymentClient) {
		p.client = client
	}
}

func (p *PaymentClient) GetPayment(ctx context.Context, reference string) (*Payment, error) {
	paymentData := new(PaymentModel)

	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(paymentData).
		SetPathParams(map[string]string{
			"reference": reference,
		}).
		Get("/api/payments/{reference}")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusNotFound, http.StatusNoContent:
		return nil, ErrPaymentNotFound
	case http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	case http.StatusInternalServerError:
		return nil, ErrSomethingWentWrong
	}

	payment, err := newPayment(paymentData.Reference, paymentData.Status, paymentData.Amount)
	if err != nil {
		return nil, fmt.Errorf("newPayment: %w", err)
	}

	return payment, nil
}
