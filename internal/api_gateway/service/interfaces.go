package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/gateway"
)

// PaymentIntentService opens payments for buyers
type PaymentIntentService interface {
	// CreateIntent resolves or creates the buyer account, records a pending transaction
	// and order, and opens a charge with the gateway.
	// Gateway failures are compensated and returned as *payment.GatewayError.
	CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResult, error)
}

// WebhookReconciler applies gateway notifications to stored state
type WebhookReconciler interface {
	// Reconcile authenticates the notification and applies it idempotently.
	// An unknown order code is acknowledged with OutcomeNotFound and a nil error.
	Reconcile(ctx context.Context, notification *gateway.Notification, raw json.RawMessage) (Outcome, error)
}

// PaymentQueryService reads payment state for the finish page
type PaymentQueryService interface {
	// GetPayment returns payment.ErrTransactionNotFound when the order code is unknown
	GetPayment(ctx context.Context, orderCode string) (*PaymentView, error)
}

// OrderCodeGenerator produces unused order codes
type OrderCodeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// GatewayClient opens charges with the external provider
type GatewayClient interface {
	CreateCharge(ctx context.Context, charge gateway.ChargeRequest) (*gateway.ChargeResponse, error)
	FinishURL(orderCode string) string
}

// SignatureVerifier authenticates webhook payloads
type SignatureVerifier interface {
	Verify(orderID, statusCode, grossAmount, signature string) error
}

// EntitySynchronizer propagates a transaction status to the owner account and order record
type EntitySynchronizer interface {
	Sync(ctx context.Context, tx pgx.Tx, txn *payment.Transaction, status payment.Status) error
}

// Compensator removes the records of a payment attempt that will never complete
type Compensator interface {
	Compensate(ctx context.Context, tx pgx.Tx, orderCode string, ownerID uuid.UUID) error
}

// Notifier enqueues outcome emails
type Notifier interface {
	Notify(ctx context.Context, tx pgx.Tx, input NotificationInput) error
}

// IntentRequest is a buyer's request to pay for one item
type IntentRequest struct {
	Name  string
	Email string
	Phone string
	Item  payment.ItemRef
}

// IntentResult is what the buyer needs to open the payment page
type IntentResult struct {
	OrderCode   string `json:"order_code"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// NotificationInput describes a status change worth telling the buyer about
type NotificationInput struct {
	Transaction     *payment.Transaction
	Account         *account.Account // Loaded from the owner id when nil
	ItemName        string           // Looked up in the catalog when empty
	NewStatus       payment.Status
	PriorStatus     payment.Status
	ActivationToken string
	RedirectURL     string
}

// PaymentView is the public status of a payment
type PaymentView struct {
	OrderCode   string          `json:"order_code"`
	Status      payment.Status  `json:"status"`
	OrderStatus order.Status    `json:"order_status"`
	Item        payment.ItemRef `json:"item"`
	Amount      int64           `json:"amount"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

// Outcome classifies how a webhook was applied
type Outcome string

const (
	OutcomeAcknowledged Outcome = "acknowledged"  // Replay of the outcome already stored
	OutcomeTransitioned Outcome = "transitioned"  // Status left pending
	OutcomeNotFound     Outcome = "not_found"     // No transaction for the order code
	OutcomeSnapshotOnly Outcome = "snapshot_only" // Only the stored gateway payload changed
)
