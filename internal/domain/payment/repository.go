package payment

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction persistence operations keyed by order code
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByOrderCode(ctx context.Context, orderCode string) (*Transaction, error)
	ExistsByOrderCode(ctx context.Context, orderCode string) (bool, error)
	SetPaymentToken(ctx context.Context, orderCode, token, redirectURL string) error
	UpdateSnapshot(ctx context.Context, orderCode string, snapshot json.RawMessage) error

	// TransitionFromPending moves the transaction to status only if it is still
	// pending, in one conditional statement. It reports whether a row changed.
	TransitionFromPending(ctx context.Context, orderCode string, status Status, snapshot json.RawMessage) (bool, error)

	// Delete removes the transaction. A missing row is not an error.
	Delete(ctx context.Context, orderCode string) error
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	WithTx(tx pgx.Tx) Repository
}
