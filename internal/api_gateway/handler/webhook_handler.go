package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
	"github.com/course-commerce-payments/internal/platform/gateway"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives payment status notifications from the gateway
type WebhookHandler struct {
	reconciler service.WebhookReconciler
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, reconciler service.WebhookReconciler) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle applies one notification. Any 200 tells the gateway to stop retrying.
func (h *WebhookHandler) Handle(c *gin.Context) {
	log := logger.ForContext(h.logger, c.Request.Context())

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Error("Failed to read webhook body", "error", err)
		RespondMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	var notification gateway.Notification
	if err := json.Unmarshal(raw, &notification); err != nil {
		log.Warn("Failed to decode webhook body", "error", err)
		RespondMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	outcome, err := h.reconciler.Reconcile(c.Request.Context(), &notification, raw)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			log.Warn("Rejected webhook with invalid signature", "order_code", notification.OrderID)
			RespondMessage(c, http.StatusForbidden, "invalid signature")
		case errors.Is(err, payment.ErrMisconfigured):
			log.Error("Webhook received without a gateway server key configured")
			RespondMessage(c, http.StatusInternalServerError, "gateway secret not configured")
		default:
			log.Error("Failed to reconcile webhook", "error", err, "order_code", notification.OrderID)
			RespondMessage(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	log.Info("Webhook reconciled",
		"order_code", notification.OrderID,
		"transaction_status", notification.TransactionStatus,
		"outcome", outcome,
	)
	RespondMessage(c, http.StatusOK, "OK")
}
