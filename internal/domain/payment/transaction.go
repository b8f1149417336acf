// Package payment holds the payment attempt ledger: transactions keyed by order
// code, their state machine, and the error kinds surfaced to callers.
package payment

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrEmptyOrderCode = errors.New("order code cannot be empty")
	ErrMissingOwner   = errors.New("owner user id cannot be empty")
)

// Transaction is the ledger entry for one payment attempt
type Transaction struct {
	OrderCode        string          `json:"order_code"`
	Status           Status          `json:"status"`
	Item             ItemRef         `json:"item"`
	Amount           int64           `json:"amount"` // Smallest currency unit
	OwnerUserID      uuid.UUID       `json:"owner_user_id"`
	AutoCreatedOwner bool            `json:"auto_created_owner"`
	PaymentToken     string          `json:"payment_token,omitempty"`
	RedirectURL      string          `json:"redirect_url,omitempty"`
	GatewaySnapshot  json.RawMessage `json:"gateway_snapshot,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewTransaction creates a pending transaction for the given order code
func NewTransaction(orderCode string, item ItemRef, amount int64, ownerID uuid.UUID, autoCreatedOwner bool) (*Transaction, error) {
	if orderCode == "" {
		return nil, ErrEmptyOrderCode
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if ownerID == uuid.Nil {
		return nil, ErrMissingOwner
	}

	now := time.Now().UTC()
	return &Transaction{
		OrderCode:        orderCode,
		Status:           StatusPending,
		Item:             item,
		Amount:           amount,
		OwnerUserID:      ownerID,
		AutoCreatedOwner: autoCreatedOwner,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
