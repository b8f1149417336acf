package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByEmail and GetByPhone return nil, nil when no account matches
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByPhone(ctx context.Context, phone string) (*Account, error)

	// Activate sets the active and verified flags; repeated calls are no-ops
	Activate(ctx context.Context, id uuid.UUID) error

	// DeleteIfOrphaned removes an auto-created account that owns no transactions,
	// in a single conditional statement. It reports whether a row was deleted.
	DeleteIfOrphaned(ctx context.Context, id uuid.UUID) (bool, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// ErrDuplicateIdentity indicates an email or phone uniqueness violation
type ErrDuplicateIdentity struct {
	Field string
	Value string
}

func (e ErrDuplicateIdentity) Error() string {
	return "account with " + e.Field + " already exists: " + e.Value
}
