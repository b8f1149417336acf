package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/platform/gateway"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type MockPaymentIntentService struct {
	mock.Mock
}

func (m *MockPaymentIntentService) CreateIntent(ctx context.Context, req *service.IntentRequest) (*service.IntentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IntentResult), args.Error(1)
}

type MockPaymentQueryService struct {
	mock.Mock
}

func (m *MockPaymentQueryService) GetPayment(ctx context.Context, orderCode string) (*service.PaymentView, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentView), args.Error(1)
}

type MockWebhookReconciler struct {
	mock.Mock
}

func (m *MockWebhookReconciler) Reconcile(ctx context.Context, notification *gateway.Notification, raw json.RawMessage) (service.Outcome, error) {
	args := m.Called(ctx, notification, raw)
	return args.Get(0).(service.Outcome), args.Error(1)
}
