// Package notification describes outcome emails and the outbox that carries
// them from the payment transaction to the dispatcher.
package notification

import (
	"fmt"
	"time"

	"github.com/course-commerce-payments/internal/domain/payment"
)

// Kind identifies which outcome email to send
type Kind string

const (
	KindPaymentPending   Kind = "payment_pending"
	KindPaymentCompleted Kind = "payment_completed"
	KindPaymentFailed    Kind = "payment_failed"
	KindPaymentCancelled Kind = "payment_cancelled"
	KindPaymentExpired   Kind = "payment_expired"
)

// KindForStatus returns the email kind announcing a transaction status
func KindForStatus(status payment.Status) (Kind, error) {
	switch status {
	case payment.StatusPending:
		return KindPaymentPending, nil
	case payment.StatusCompleted:
		return KindPaymentCompleted, nil
	case payment.StatusFailed:
		return KindPaymentFailed, nil
	case payment.StatusCancelled:
		return KindPaymentCancelled, nil
	case payment.StatusExpired:
		return KindPaymentExpired, nil
	default:
		return "", fmt.Errorf("no notification kind for status %q", status)
	}
}

// Template is the email template name registered with the mail provider
func (k Kind) Template() string {
	return string(k)
}

// Recipient is who receives the email
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Event is the message published to the notification topic
type Event struct {
	OrderCode       string          `json:"order_code"`
	Kind            Kind            `json:"kind"`
	Recipient       Recipient       `json:"recipient"`
	Item            payment.ItemRef `json:"item"`
	ItemName        string          `json:"item_name"`
	Amount          int64           `json:"amount"`
	RedirectURL     string          `json:"redirect_url,omitempty"`
	ActivationToken string          `json:"activation_token,omitempty"` // Only on pending emails to new accounts
	CorrelationID   string          `json:"correlation_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// DeliveryKey identifies one email regardless of how often the event is redelivered
func (e *Event) DeliveryKey() string {
	return e.OrderCode + ":" + string(e.Kind)
}

// TemplateData returns the variables substituted into the email template
func (e *Event) TemplateData() map[string]interface{} {
	data := map[string]interface{}{
		"name":       e.Recipient.Name,
		"order_code": e.OrderCode,
		"item_name":  e.ItemName,
		"amount":     e.Amount,
	}
	if e.RedirectURL != "" {
		data["payment_url"] = e.RedirectURL
	}
	if e.ActivationToken != "" {
		data["activation_token"] = e.ActivationToken
	}
	return data
}
