package payment

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the payment services. Callers match them with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrIdentityConflict = errors.New("identity conflict")
	ErrDuplicateOrder   = errors.New("duplicate order")
	ErrGateway          = errors.New("gateway error")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNotFound         = errors.New("not found")
	ErrPersistence      = errors.New("persistence error")
	ErrMisconfigured    = errors.New("gateway secret not configured")
)

// ValidationError describes a missing or malformed request field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is lets errors.Is match ValidationError against ErrValidation
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidationErrors collects every field problem of one request
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// IdentityConflictError means the email or phone belongs to a different account
type IdentityConflictError struct {
	Reason string
}

func (e IdentityConflictError) Error() string {
	return "identity conflict: " + e.Reason
}

func (e IdentityConflictError) Is(target error) bool {
	return target == ErrIdentityConflict
}

// DuplicateOrderError means an open order already exists for the buyer and item
type DuplicateOrderError struct {
	Item ItemRef
}

func (e DuplicateOrderError) Error() string {
	return "an open order already exists for " + e.Item.String()
}

func (e DuplicateOrderError) Is(target error) bool {
	return target == ErrDuplicateOrder
}

// GatewayError carries the gateway's message after a failed charge attempt
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return "payment gateway request failed"
	}
	return "payment gateway request failed: " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

// ErrTransactionNotFound indicates no transaction exists for an order code
type ErrTransactionNotFound struct {
	OrderCode string
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.OrderCode
}

func (e ErrTransactionNotFound) Is(target error) bool {
	return target == ErrNotFound
}

// ErrDuplicateOrderCode indicates the order code unique index rejected an insert
type ErrDuplicateOrderCode struct {
	OrderCode string
}

func (e ErrDuplicateOrderCode) Error() string {
	return "transaction with order code already exists: " + e.OrderCode
}
