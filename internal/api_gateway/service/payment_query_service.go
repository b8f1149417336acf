package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
)

// PaymentQueryServiceImpl implements the PaymentQueryService interface
type PaymentQueryServiceImpl struct {
	transactionRepo payment.Repository
	orderRepo       order.Repository
	logger          *slog.Logger
}

// NewPaymentQueryService creates a new payment query service
func NewPaymentQueryService(logger *slog.Logger, transactionRepo payment.Repository, orderRepo order.Repository) PaymentQueryService {
	return &PaymentQueryServiceImpl{
		transactionRepo: transactionRepo,
		orderRepo:       orderRepo,
		logger:          logger,
	}
}

// GetPayment returns the transaction and order status for orderCode
func (s *PaymentQueryServiceImpl) GetPayment(ctx context.Context, orderCode string) (*PaymentView, error) {
	log := logger.ForContext(s.logger, ctx)

	txn, err := s.transactionRepo.GetByOrderCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			log.Info("Payment not found", "order_code", orderCode)
			return nil, err
		}
		log.Error("Failed to get payment", "order_code", orderCode, "error", err)
		return nil, persistenceError("load transaction", err)
	}

	view := &PaymentView{
		OrderCode:   txn.OrderCode,
		Status:      txn.Status,
		Item:        txn.Item,
		Amount:      txn.Amount,
		RedirectURL: txn.RedirectURL,
	}

	ord, err := s.orderRepo.GetByOrderCode(ctx, orderCode)
	switch {
	case err == nil:
		view.OrderStatus = ord.Status
	case errors.Is(err, payment.ErrNotFound):
		log.Warn("Order record missing for transaction", "order_code", orderCode)
	default:
		log.Error("Failed to get order record", "order_code", orderCode, "error", err)
		return nil, persistenceError("load order", err)
	}

	return view, nil
}
