package payclient

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusAbandoned PaymentStatus = "ABANDONED"
)

type PaymentModel struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
}

func parsePaymentStatus(status string) (PaymentStatus, error) {
	switch status {
	case "PENDING":
		return PaymentStatusPending, nil
	case "SUCCESS":
		return PaymentStatusSuccess, nil
	case "FAILED":
		return PaymentStatusFailed, nil
	case "ABANDONED":
		return PaymentStatusAbandoned, nil
	default:
		return "", fmt.Errorf("unknown payment status: %s", status)
	}
}

type Payment struct {
	reference string
	status    PaymentStatus
	amount    decimal.Decimal
}

func newPayment(reference string, status string, amount decimal.Decimal) (*Payment, error) {
	paymentStatus, err := parsePaymentStatus(status)
	if err != nil {
		return nil, err
	}

	return &Payment{
		reference: reference,
		status:    paymentStatus,
		amount:    amount,
	}, nil
}

func (p *Payment) Reference() string {
	return p.reference
}

func (p *Payment) Status() PaymentStatus {
	return p.status
}

func (p *Payment) Amount() decimal.Decimal {
	return p.amount
}

// Final reports whether the gateway will never change the status again.
func (p *Payment) Final() bool {
	return p.status != PaymentStatusPending
}
