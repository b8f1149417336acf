package outbox_poller

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/domain/payment"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestMessage(id int64, orderCode string, attempts int) *notification.Message {
	event := &notification.Event{
		OrderCode:     orderCode,
		Kind:          notification.KindPaymentCompleted,
		Recipient:     notification.Recipient{Name: "Agus", Email: "agus@example.com"},
		Item:          payment.CourseEnrollment(uuid.New()),
		ItemName:      "Kubernetes Fundamentals",
		Amount:        750000,
		CorrelationID: "corr-" + orderCode,
		OccurredAt:    time.Now().UTC(),
	}
	msg, err := notification.NewMessage(event)
	if err != nil {
		panic(err)
	}
	msg.ID = id
	msg.Attempts = attempts
	return msg
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *notification.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*notification.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status notification.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) notification.Repository {
	return m
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, message *notification.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

