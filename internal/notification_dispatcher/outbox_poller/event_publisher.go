package outbox_poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/metrics"
	"github.com/course-commerce-payments/internal/platform/messaging/producers"
)

// EventPublisher hands outbox messages to the notification topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *notification.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo notification.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo notification.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes the stored event and marks the message processed. A publish
// that succeeds before the status update fails is sent again on the next tick; the
// dispatcher's delivery guard absorbs the duplicate.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *notification.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Failed to unmarshal notification event from outbox payload",
			"outbox_id", message.ID, "order_code", message.OrderCode, "error", err,
		)
		metrics.OutboxPublishedTotal.WithLabelValues("undecodable").Inc()
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, notification.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if err := p.producer.Publish(ctx, event.OrderCode, json.RawMessage(message.Payload)); err != nil {
		metrics.OutboxPublishedTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to publish outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, notification.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "order_code", message.OrderCode, "error", err,
		)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.OrderCode, message.ID, err)
	}

	metrics.OutboxPublishedTotal.WithLabelValues("published").Inc()
	logger.Info("Outbox message published and marked as PROCESSED",
		"outbox_id", message.ID, "order_code", message.OrderCode, "kind", message.Kind,
	)
	return nil
}
