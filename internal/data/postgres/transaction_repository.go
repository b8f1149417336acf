// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a pgx.Tx so the payment services can change
// several records atomically.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the payment.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new transaction. A taken order code yields payment.ErrDuplicateOrderCode.
func (r *TransactionRepository) Create(ctx context.Context, txn *payment.Transaction) error {
	query := `
		INSERT INTO transactions (order_code, status, item_kind, item_id, amount, owner_user_id, auto_created_owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.OrderCode,
		string(txn.Status),
		string(txn.Item.Kind),
		txn.Item.ID,
		txn.Amount,
		txn.OwnerUserID,
		txn.AutoCreatedOwner,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return payment.ErrDuplicateOrderCode{OrderCode: txn.OrderCode}
		}
		r.logger.Error("Failed to create transaction", "order_code", txn.OrderCode, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByOrderCode retrieves a transaction by exact order code
func (r *TransactionRepository) GetByOrderCode(ctx context.Context, orderCode string) (*payment.Transaction, error) {
	query := `
		SELECT order_code, status, item_kind, item_id, amount, owner_user_id, auto_created_owner,
			COALESCE(payment_token, ''), COALESCE(redirect_url, ''), gateway_snapshot, created_at, updated_at
		FROM transactions
		WHERE order_code = $1
	`

	var (
		txn      payment.Transaction
		status   string
		itemKind string
		snapshot []byte
	)
	err := r.querier.QueryRow(ctx, query, orderCode).Scan(
		&txn.OrderCode,
		&status,
		&itemKind,
		&txn.Item.ID,
		&txn.Amount,
		&txn.OwnerUserID,
		&txn.AutoCreatedOwner,
		&txn.PaymentToken,
		&txn.RedirectURL,
		&snapshot,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound{OrderCode: orderCode}
		}
		r.logger.Error("Failed to get transaction", "order_code", orderCode, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if txn.Status, err = payment.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", orderCode, err)
	}
	if txn.Item.Kind, err = payment.ParseItemKind(itemKind); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", orderCode, err)
	}
	if len(snapshot) > 0 {
		txn.GatewaySnapshot = json.RawMessage(snapshot)
	}

	return &txn, nil
}

// ExistsByOrderCode reports whether an order code is taken
func (r *TransactionRepository) ExistsByOrderCode(ctx context.Context, orderCode string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE order_code = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, orderCode).Scan(&exists); err != nil {
		r.logger.Error("Failed to check order code", "order_code", orderCode, "error", err)
		return false, fmt.Errorf("failed to check order code: %w", err)
	}
	return exists, nil
}

// SetPaymentToken stores the gateway token and redirect URL of a pending transaction
func (r *TransactionRepository) SetPaymentToken(ctx context.Context, orderCode, token, redirectURL string) error {
	query := `
		UPDATE transactions
		SET payment_token = $2, redirect_url = $3, updated_at = NOW()
		WHERE order_code = $1
	`

	result, err := r.querier.Exec(ctx, query, orderCode, token, redirectURL)
	if err != nil {
		r.logger.Error("Failed to set payment token", "order_code", orderCode, "error", err)
		return fmt.Errorf("failed to set payment token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return payment.ErrTransactionNotFound{OrderCode: orderCode}
	}
	return nil
}

// UpdateSnapshot overwrites the stored gateway payload without touching status
func (r *TransactionRepository) UpdateSnapshot(ctx context.Context, orderCode string, snapshot json.RawMessage) error {
	query := `
		UPDATE transactions
		SET gateway_snapshot = $2, updated_at = NOW()
		WHERE order_code = $1
	`

	result, err := r.querier.Exec(ctx, query, orderCode, snapshot)
	if err != nil {
		r.logger.Error("Failed to update gateway snapshot", "order_code", orderCode, "error", err)
		return fmt.Errorf("failed to update gateway snapshot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return payment.ErrTransactionNotFound{OrderCode: orderCode}
	}
	return nil
}

// TransitionFromPending changes status only while the row is still pending
func (r *TransactionRepository) TransitionFromPending(ctx context.Context, orderCode string, status payment.Status, snapshot json.RawMessage) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2, gateway_snapshot = $3, updated_at = NOW()
		WHERE order_code = $1 AND status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, orderCode, string(status), snapshot)
	if err != nil {
		r.logger.Error("Failed to transition transaction",
			"order_code", orderCode,
			"status", string(status),
			"error", err,
		)
		return false, fmt.Errorf("failed to transition transaction: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Delete removes a transaction; its order row goes with it through ON DELETE CASCADE
func (r *TransactionRepository) Delete(ctx context.Context, orderCode string) error {
	query := `DELETE FROM transactions WHERE order_code = $1`

	if _, err := r.querier.Exec(ctx, query, orderCode); err != nil {
		r.logger.Error("Failed to delete transaction", "order_code", orderCode, "error", err)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// CountByOwner counts the transactions owned by an account
func (r *TransactionRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE owner_user_id = $1`

	var count int
	if err := r.querier.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "owner_user_id", ownerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
