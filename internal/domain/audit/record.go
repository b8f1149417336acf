// Package audit is the permanent record of every gateway interaction. It outlives
// transactions that are deleted after a negative outcome.
package audit

import (
	"context"
	"time"
)

// Kind classifies an audit record
type Kind string

const (
	KindIntentCreated   Kind = "intent_created"
	KindIntentFailed    Kind = "intent_failed"
	KindWebhookReceived Kind = "webhook_received"
	KindCompensated     Kind = "compensated"
)

// Record is one immutable audit entry
type Record struct {
	Kind          Kind                   `json:"kind" bson:"kind"`
	OrderCode     string                 `json:"order_code" bson:"order_code"`
	GatewayStatus string                 `json:"gateway_status,omitempty" bson:"gateway_status,omitempty"`
	StatusBefore  string                 `json:"status_before,omitempty" bson:"status_before,omitempty"`
	StatusAfter   string                 `json:"status_after,omitempty" bson:"status_after,omitempty"`
	Amount        int64                  `json:"amount,omitempty" bson:"amount,omitempty"`
	Detail        string                 `json:"detail,omitempty" bson:"detail,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at" bson:"created_at"`
}

// Repository appends and reads audit records
type Repository interface {
	Append(ctx context.Context, record *Record) error
	ListByOrderCode(ctx context.Context, orderCode string, limit int) ([]*Record, error)
}
