package service

import (
	"context"

	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/platform/email"
)

// DeliveryService turns a notification event into a sent email
type DeliveryService interface {
	Deliver(ctx context.Context, event *notification.Event) error
}

// DeliveryGuard suppresses duplicate sends of one notification
type DeliveryGuard interface {
	// Claim returns false when the key was already claimed
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// EmailSender delivers a templated email and returns the provider message id
type EmailSender interface {
	Send(ctx context.Context, msg email.TemplatedEmail) (string, error)
}
