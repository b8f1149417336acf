// Package order holds the domain order record kept in lockstep with a payment
// transaction. Its status vocabulary depends on the kind of item purchased.
package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/course-commerce-payments/internal/domain/payment"
)

// Status is the domain-facing state of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"    // Enrollment or seat granted
	StatusDelivered Status = "delivered" // Digital product released
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// OpenStatuses block a second purchase of the same item by the same owner
var OpenStatuses = []Status{StatusPending, StatusActive, StatusDelivered}

// Order is one per transaction, sharing its order code
type Order struct {
	ID          uuid.UUID       `json:"id"`
	OrderCode   string          `json:"order_code"`
	OwnerUserID uuid.UUID       `json:"owner_user_id"`
	Item        payment.ItemRef `json:"item"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewOrder creates a pending order for a freshly created transaction
func NewOrder(txn *payment.Transaction) *Order {
	return &Order{
		ID:          uuid.New(),
		OrderCode:   txn.OrderCode,
		OwnerUserID: txn.OwnerUserID,
		Item:        txn.Item,
		Status:      StatusPending,
		CreatedAt:   txn.CreatedAt,
		UpdatedAt:   txn.CreatedAt,
	}
}

// Repository defines order persistence operations
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByOrderCode(ctx context.Context, orderCode string) (*Order, error)
	UpdateStatus(ctx context.Context, orderCode string, status Status) error

	// DeleteByOrderCode is idempotent; a missing row is not an error
	DeleteByOrderCode(ctx context.Context, orderCode string) error
	ExistsOpenForOwner(ctx context.Context, ownerID uuid.UUID, item payment.ItemRef) (bool, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrOrderNotFound indicates missing order record
type ErrOrderNotFound struct {
	OrderCode string
}

func (e ErrOrderNotFound) Error() string {
	return "order not found: " + e.OrderCode
}

func (e ErrOrderNotFound) Is(target error) bool {
	return target == payment.ErrNotFound
}
