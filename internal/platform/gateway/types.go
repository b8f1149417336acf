package gateway

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionDetails identifies the charge
type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

// CustomerDetails identifies the payer
type CustomerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ItemDetail is one line of the charge
type ItemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

// Callbacks holds the page the payer returns to
type Callbacks struct {
	Finish string `json:"finish"`
}

// ChargeRequest is the body of a create-transaction call
type ChargeRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    CustomerDetails    `json:"customer_details"`
	ItemDetails        []ItemDetail       `json:"item_details"`
	Callbacks          *Callbacks         `json:"callbacks,omitempty"`
}

// ChargeResponse carries the payment page handles
type ChargeResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type errorResponse struct {
	ErrorMessages []string `json:"error_messages"`
}

// Error is a non-success answer from the gateway
type Error struct {
	StatusCode int
	Messages   []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Notification is the webhook body posted by the gateway
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionStatus string `json:"transaction_status"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id,omitempty"`
	TransactionTime   string `json:"transaction_time,omitempty"`
}

// FormatGrossAmount renders an amount in the gateway's two-decimal form, e.g. 150000.00
func FormatGrossAmount(amount int64) string {
	return decimal.NewFromInt(amount).StringFixed(2)
}

// ParseGrossAmount reads a gateway amount string into smallest currency units.
// Fractional amounts are rejected since the store keeps whole units.
func ParseGrossAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid gross amount %q: %w", s, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid gross amount %q: fractional units", s)
	}
	return d.IntPart(), nil
}
