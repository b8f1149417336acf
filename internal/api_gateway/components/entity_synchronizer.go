package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
)

// EntitySynchronizerImpl implements the EntitySynchronizer interface
type EntitySynchronizerImpl struct {
	accountRepo account.Repository
	orderRepo   order.Repository
	logger      *slog.Logger
}

// NewEntitySynchronizer creates a new EntitySynchronizerImpl
func NewEntitySynchronizer(accountRepo account.Repository, orderRepo order.Repository, logger *slog.Logger) service.EntitySynchronizer {
	return &EntitySynchronizerImpl{
		accountRepo: accountRepo,
		orderRepo:   orderRepo,
		logger:      logger,
	}
}

// OrderStatusFor translates a transaction status into the order vocabulary of the item kind
func OrderStatusFor(kind payment.ItemKind, status payment.Status) (order.Status, error) {
	var completed order.Status
	switch kind {
	case payment.ItemCourseEnrollment:
		completed = order.StatusActive
	case payment.ItemDigitalProduct:
		completed = order.StatusDelivered
	case payment.ItemBootcampSeat:
		completed = order.StatusActive
	default:
		return "", payment.ErrUnknownItemKind
	}

	switch status {
	case payment.StatusCompleted:
		return completed, nil
	case payment.StatusPending:
		return order.StatusPending, nil
	case payment.StatusFailed:
		return order.StatusFailed, nil
	case payment.StatusCancelled:
		return order.StatusCancelled, nil
	case payment.StatusExpired:
		return order.StatusExpired, nil
	default:
		return "", fmt.Errorf("no order status for transaction status %q", status)
	}
}

// Sync updates the order record and, on completion, activates the owner account.
// Both writes are idempotent so a replayed call changes nothing.
func (s *EntitySynchronizerImpl) Sync(ctx context.Context, tx pgx.Tx, txn *payment.Transaction, status payment.Status) error {
	log := logger.ForContext(s.logger, ctx)

	orderStatus, err := OrderStatusFor(txn.Item.Kind, status)
	if err != nil {
		log.Error("Failed to map order status", "order_code", txn.OrderCode, "item", txn.Item.String(), "status", string(status), "error", err)
		return err
	}

	if err := s.orderRepo.WithTx(tx).UpdateStatus(ctx, txn.OrderCode, orderStatus); err != nil {
		if !errors.Is(err, payment.ErrNotFound) {
			log.Error("Failed to update order status", "order_code", txn.OrderCode, "order_status", string(orderStatus), "error", err)
			return fmt.Errorf("failed to update order %s: %w", txn.OrderCode, err)
		}
		log.Warn("Order record missing during sync", "order_code", txn.OrderCode)
	} else {
		log.Info("Order status updated", "order_code", txn.OrderCode, "order_status", string(orderStatus))
	}

	if status != payment.StatusCompleted {
		return nil
	}

	if err := s.accountRepo.WithTx(tx).Activate(ctx, txn.OwnerUserID); err != nil {
		log.Error("Failed to activate owner account", "order_code", txn.OrderCode, "account_id", txn.OwnerUserID.String(), "error", err)
		return fmt.Errorf("failed to activate account %s: %w", txn.OwnerUserID.String(), err)
	}
	log.Info("Owner account activated", "order_code", txn.OrderCode, "account_id", txn.OwnerUserID.String())

	return nil
}
