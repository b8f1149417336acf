package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/notification_dispatcher/service"
	"github.com/course-commerce-payments/internal/platform/messaging/producers"
)

// NotificationEventHandler handles notification events consumed from Kafka
type NotificationEventHandler struct {
	deliveryService service.DeliveryService
	producer        producers.DeadLetterPublisher
	logger          *slog.Logger
}

// NewNotificationEventHandler creates a new handler. producer may be nil when no DLQ is configured.
func NewNotificationEventHandler(
	logger *slog.Logger,
	deliveryService service.DeliveryService,
	producer producers.DeadLetterPublisher,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		deliveryService: deliveryService,
		producer:        producer,
		logger:          logger,
	}
}

// HandleMessage delivers one event. Returning an error leaves the offset uncommitted.
func (h *NotificationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event notification.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("Failed to unmarshal notification event from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, fmt.Sprintf("undecodable notification event: %s", err.Error()), err)
	}

	logger := h.logger.With("order_code", event.OrderCode, "kind", event.Kind)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	if err := h.deliveryService.Deliver(ctx, &event); err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			logger.Error("Notification event can never be delivered", "error", err)
			return h.deadLetter(ctx, key, value, err.Error(), err)
		}
		logger.Error("Failed to deliver notification", "error", err)
		return fmt.Errorf("delivering %s for %s failed: %w", event.Kind, event.OrderCode, err)
	}

	logger.Debug("Notification event handled")
	return nil
}

// deadLetter parks a poison message. The offset is committed only when the DLQ accepted it.
func (h *NotificationEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("unprocessable notification event: %w", cause)
	}

	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("unprocessable notification event: %w", cause)
	}

	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
