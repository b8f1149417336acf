package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/gateway"
)

const settlementBody = `{"order_id":"ORD-2345ABCD","status_code":"200","gross_amount":"150000.00",` +
	`"transaction_status":"settlement","signature_key":"abc123","payment_type":"bank_transfer"}`

func TestWebhookHandler_Handle(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		setupMocks      func(m *MockWebhookReconciler)
		expectedCode    int
		expectedMessage string
	}{
		{
			name: "Transitioned",
			body: settlementBody,
			setupMocks: func(m *MockWebhookReconciler) {
				m.On("Reconcile", mock.Anything, mock.MatchedBy(func(n *gateway.Notification) bool {
					return n.OrderID == "ORD-2345ABCD" && n.TransactionStatus == "settlement" &&
						n.GrossAmount == "150000.00" && n.SignatureKey == "abc123"
				}), json.RawMessage(settlementBody)).Return(service.OutcomeTransitioned, nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "OK",
		},
		{
			name: "ReplayAcknowledged",
			body: settlementBody,
			setupMocks: func(m *MockWebhookReconciler) {
				m.On("Reconcile", mock.Anything, mock.Anything, mock.Anything).Return(service.OutcomeAcknowledged, nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "OK",
		},
		{
			name: "UnknownOrderAcknowledged",
			body: settlementBody,
			setupMocks: func(m *MockWebhookReconciler) {
				m.On("Reconcile", mock.Anything, mock.Anything, mock.Anything).Return(service.OutcomeNotFound, nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "OK",
		},
		{
			name: "InvalidSignature",
			body: settlementBody,
			setupMocks: func(m *MockWebhookReconciler) {
				m.On("Reconcile", mock.Anything, mock.Anything, mock.Anything).
					Return(service.Outcome(""), fmt.Errorf("%w: mismatch", payment.ErrInvalidSignature))
			},
			expectedCode:    http.StatusForbidden,
			expectedMessage: "invalid signature",
		},
		{
			name: "MissingServerKey",
			body: settlementBody,
			setupMocks: func(m *MockWebhookReconciler) {
				m.On("Reconcile", mock.Anything, mock.Anything, mock.Anything).
					Return(service.Outcome(""), payment.ErrMisconfigured)
			},
			expectedCode:    http.StatusInternalServerError,
			expectedMessage: "gateway secret not configured",
		},
		{
			name: "PersistenceError",
			body: settlementBody,
			setupMocks: func(m *MockWebhookReconciler) {
				m.On("Reconcile", mock.Anything, mock.Anything, mock.Anything).
					Return(service.Outcome(""), fmt.Errorf("%w: failed to apply: %w", payment.ErrPersistence, errors.New("deadlock")))
			},
			expectedCode:    http.StatusInternalServerError,
			expectedMessage: "internal error",
		},
		{
			name:            "MalformedJSON",
			body:            `{"order_id":`,
			setupMocks:      func(m *MockWebhookReconciler) {},
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "invalid payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			reconciler := new(MockWebhookReconciler)
			tt.setupMocks(reconciler)

			router := gin.New()
			router.POST("/webhook", NewWebhookHandler(newTestLogger(), reconciler).Handle)

			req, _ := http.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			var resp MessageResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedMessage, resp.Message)
			reconciler.AssertExpectations(t)
		})
	}
}
