package components

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/audit"
	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
)

// CompensatorImpl implements the Compensator interface
type CompensatorImpl struct {
	transactionRepo payment.Repository
	orderRepo       order.Repository
	accountRepo     account.Repository
	auditRepo       audit.Repository
	logger          *slog.Logger
}

// NewCompensator creates a new CompensatorImpl
func NewCompensator(
	transactionRepo payment.Repository,
	orderRepo order.Repository,
	accountRepo account.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) service.Compensator {
	return &CompensatorImpl{
		transactionRepo: transactionRepo,
		orderRepo:       orderRepo,
		accountRepo:     accountRepo,
		auditRepo:       auditRepo,
		logger:          logger,
	}
}

// Compensate deletes the order and transaction for orderCode, then the owner account
// if it was auto-created and owns nothing else. Missing rows count as already deleted.
func (c *CompensatorImpl) Compensate(ctx context.Context, tx pgx.Tx, orderCode string, ownerID uuid.UUID) error {
	log := logger.ForContext(c.logger, ctx)
	log.Info("Compensating payment attempt", "order_code", orderCode, "owner_id", ownerID.String())

	if err := c.orderRepo.WithTx(tx).DeleteByOrderCode(ctx, orderCode); err != nil {
		log.Error("Failed to delete order record", "order_code", orderCode, "error", err)
		return fmt.Errorf("failed to delete order %s: %w", orderCode, err)
	}

	if err := c.transactionRepo.WithTx(tx).Delete(ctx, orderCode); err != nil {
		log.Error("Failed to delete transaction", "order_code", orderCode, "error", err)
		return fmt.Errorf("failed to delete transaction %s: %w", orderCode, err)
	}

	accountDeleted, err := c.accountRepo.WithTx(tx).DeleteIfOrphaned(ctx, ownerID)
	if err != nil {
		log.Error("Failed to clean up owner account", "order_code", orderCode, "owner_id", ownerID.String(), "error", err)
		return fmt.Errorf("failed to clean up account %s: %w", ownerID.String(), err)
	}
	if accountDeleted {
		log.Info("Orphaned auto-created account deleted", "order_code", orderCode, "owner_id", ownerID.String())
	}

	record := &audit.Record{
		Kind:          audit.KindCompensated,
		OrderCode:     orderCode,
		Detail:        "account_deleted=" + strconv.FormatBool(accountDeleted),
		CorrelationID: logger.CorrelationID(ctx),
	}
	if err := c.auditRepo.Append(ctx, record); err != nil {
		log.Warn("Failed to append compensation audit record", "order_code", orderCode, "error", err)
	}

	return nil
}
