package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/email"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestEvent(kind notification.Kind) *notification.Event {
	return &notification.Event{
		OrderCode:     "ORD-2345ABCD",
		Kind:          kind,
		Recipient:     notification.Recipient{Name: "Sari", Email: "sari@example.com"},
		Item:          payment.CourseEnrollment(uuid.New()),
		ItemName:      "Go for Backend Engineers",
		Amount:        499000,
		CorrelationID: "corr-1",
		OccurredAt:    time.Now().UTC(),
	}
}

type MockDeliveryGuard struct {
	mock.Mock
}

func (m *MockDeliveryGuard) Claim(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeliveryGuard) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg email.TemplatedEmail) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Deliver(ctx context.Context, event *notification.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
