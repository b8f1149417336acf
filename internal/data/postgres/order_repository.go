package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepository implements the order.Repository interface for PostgreSQL
type OrderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores the order record that accompanies a new transaction
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	query := `
		INSERT INTO orders (id, order_code, owner_user_id, item_kind, item_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		o.ID,
		o.OrderCode,
		o.OwnerUserID,
		string(o.Item.Kind),
		o.Item.ID,
		string(o.Status),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", "order_code", o.OrderCode, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByOrderCode retrieves the order record for a transaction
func (r *OrderRepository) GetByOrderCode(ctx context.Context, orderCode string) (*order.Order, error) {
	query := `
		SELECT id, order_code, owner_user_id, item_kind, item_id, status, created_at, updated_at
		FROM orders
		WHERE order_code = $1
	`

	var (
		o        order.Order
		itemKind string
		status   string
	)
	err := r.querier.QueryRow(ctx, query, orderCode).Scan(
		&o.ID,
		&o.OrderCode,
		&o.OwnerUserID,
		&itemKind,
		&o.Item.ID,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{OrderCode: orderCode}
		}
		r.logger.Error("Failed to get order", "order_code", orderCode, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.Item.Kind, err = payment.ParseItemKind(itemKind); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", orderCode, err)
	}
	o.Status = order.Status(status)

	return &o, nil
}

// UpdateStatus overwrites the order status; writing the same value twice is harmless
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderCode string, status order.Status) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE order_code = $1
	`

	result, err := r.querier.Exec(ctx, query, orderCode, string(status))
	if err != nil {
		r.logger.Error("Failed to update order status",
			"order_code", orderCode,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrOrderNotFound{OrderCode: orderCode}
	}

	return nil
}

// DeleteByOrderCode removes the order record; a missing row is not an error
func (r *OrderRepository) DeleteByOrderCode(ctx context.Context, orderCode string) error {
	query := `DELETE FROM orders WHERE order_code = $1`

	if _, err := r.querier.Exec(ctx, query, orderCode); err != nil {
		r.logger.Error("Failed to delete order", "order_code", orderCode, "error", err)
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// ExistsOpenForOwner reports whether the owner already has a pending or fulfilled order for item
func (r *OrderRepository) ExistsOpenForOwner(ctx context.Context, ownerID uuid.UUID, item payment.ItemRef) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE owner_user_id = $1 AND item_kind = $2 AND item_id = $3 AND status = ANY($4)
		)
	`

	statuses := make([]string, 0, len(order.OpenStatuses))
	for _, s := range order.OpenStatuses {
		statuses = append(statuses, string(s))
	}

	var exists bool
	err := r.querier.QueryRow(ctx, query, ownerID, string(item.Kind), item.ID, statuses).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check open orders",
			"owner_user_id", ownerID.String(),
			"item", item.String(),
			"error", err,
		)
		return false, fmt.Errorf("failed to check open orders: %w", err)
	}
	return exists, nil
}
