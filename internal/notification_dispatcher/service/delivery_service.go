package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/metrics"
	"github.com/course-commerce-payments/internal/platform/email"
)

// ErrInvalidEvent marks an event that can never be delivered
var ErrInvalidEvent = errors.New("invalid notification event")

// DeliveryServiceImpl sends each notification at most once per delivery window
type DeliveryServiceImpl struct {
	guard  DeliveryGuard
	sender EmailSender
	logger *slog.Logger
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(guard DeliveryGuard, sender EmailSender, logger *slog.Logger) *DeliveryServiceImpl {
	return &DeliveryServiceImpl{
		guard:  guard,
		sender: sender,
		logger: logger,
	}
}

// Deliver claims the event's delivery key and sends the email. A failed send releases the
// claim and returns the error so the message is redelivered.
func (s *DeliveryServiceImpl) Deliver(ctx context.Context, event *notification.Event) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	logger := s.logger.With("order_code", event.OrderCode, "kind", event.Kind)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	key := event.DeliveryKey()
	claimed, err := s.guard.Claim(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to claim delivery %s: %w", key, err)
	}
	if !claimed {
		logger.Info("Notification already delivered, skipping")
		metrics.NotificationsSentTotal.WithLabelValues(string(event.Kind), "duplicate").Inc()
		return nil
	}

	messageID, err := s.sender.Send(ctx, email.TemplatedEmail{
		To:       event.Recipient.Email,
		Template: event.Kind.Template(),
		Data:     event.TemplateData(),
	})
	if err != nil {
		logger.Error("Failed to send notification email", "error", err)
		metrics.NotificationsSentTotal.WithLabelValues(string(event.Kind), "failed").Inc()

		// Use a fresh context: the claim must be dropped even when ctx was canceled mid-send
		if releaseErr := s.guard.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
			logger.Error("Failed to release delivery claim after send failure", "error", releaseErr)
		}
		return fmt.Errorf("failed to send %s email for %s: %w", event.Kind, event.OrderCode, err)
	}

	logger.Info("Notification email sent", "message_id", messageID)
	metrics.NotificationsSentTotal.WithLabelValues(string(event.Kind), "sent").Inc()
	return nil
}

func validateEvent(event *notification.Event) error {
	switch {
	case event == nil:
		return fmt.Errorf("%w: empty event", ErrInvalidEvent)
	case event.OrderCode == "":
		return fmt.Errorf("%w: missing order code", ErrInvalidEvent)
	case event.Recipient.Email == "":
		return fmt.Errorf("%w: missing recipient for %s", ErrInvalidEvent, event.OrderCode)
	}

	switch event.Kind {
	case notification.KindPaymentPending,
		notification.KindPaymentCompleted,
		notification.KindPaymentFailed,
		notification.KindPaymentCancelled,
		notification.KindPaymentExpired:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, event.Kind)
	}
}
