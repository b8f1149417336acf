package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/audit"
	"github.com/course-commerce-payments/internal/domain/catalog"
	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/gateway"
)

type intentMocks struct {
	db          *MockTransactor
	accounts    *MockAccountRepo
	txns        *MockTransactionRepo
	orders      *MockOrderRepo
	catalog     *MockCatalogRepo
	audit       *MockAuditRepo
	codes       *MockCodeGenerator
	gateway     *MockGatewayClient
	compensator *MockCompensator
	notifier    *MockNotifier
}

func newIntentService() (PaymentIntentService, *intentMocks) {
	m := &intentMocks{
		db:          new(MockTransactor),
		accounts:    new(MockAccountRepo),
		txns:        new(MockTransactionRepo),
		orders:      new(MockOrderRepo),
		catalog:     new(MockCatalogRepo),
		audit:       new(MockAuditRepo),
		codes:       new(MockCodeGenerator),
		gateway:     new(MockGatewayClient),
		compensator: new(MockCompensator),
		notifier:    new(MockNotifier),
	}
	svc := NewPaymentIntentService(newTestLogger(), PaymentIntentDeps{
		DB:              m.db,
		AccountRepo:     m.accounts,
		TransactionRepo: m.txns,
		OrderRepo:       m.orders,
		CatalogRepo:     m.catalog,
		AuditRepo:       m.audit,
		Codes:           m.codes,
		Gateway:         m.gateway,
		Compensator:     m.compensator,
		Notifier:        m.notifier,
		GatewayTimeout:  time.Second,
	})
	return svc, m
}

func (m *intentMocks) assertAll(t *testing.T) {
	m.db.AssertExpectations(t)
	m.accounts.AssertExpectations(t)
	m.txns.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.catalog.AssertExpectations(t)
	m.audit.AssertExpectations(t)
	m.codes.AssertExpectations(t)
	m.gateway.AssertExpectations(t)
	m.compensator.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func TestPaymentIntentService_CreateIntent(t *testing.T) {
	courseID := uuid.New()
	item := payment.CourseEnrollment(courseID)
	offering := &catalog.Offering{Item: item, Name: "Go Basics", Price: 150000, Active: true}

	existing := &account.Account{
		ID:    uuid.New(),
		Name:  "Sari",
		Email: "sari@example.com",
		Phone: "+628123456789",
	}
	other := &account.Account{
		ID:    uuid.New(),
		Name:  "Budi",
		Email: "budi@example.com",
		Phone: "+628123456789",
	}

	validRequest := func() *IntentRequest {
		return &IntentRequest{
			Name:  "Sari",
			Email: " Sari@Example.com ",
			Phone: "+62 812-3456-789",
			Item:  item,
		}
	}

	charge := &gateway.ChargeResponse{Token: "snap-token", RedirectURL: "https://gateway.test/pay/snap-token"}

	tests := []struct {
		name        string
		request     *IntentRequest
		setupMocks  func(m *intentMocks)
		expectedErr error
		check       func(t *testing.T, result *IntentResult, err error, m *intentMocks)
	}{
		{
			name:    "new buyer gets an auto-created account",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(nil, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(nil, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(offering, nil)
				m.codes.On("Generate", mock.Anything).Return("ORD-ABCD2345", nil)
				m.db.On("ExecuteTx", mock.Anything).Return(nil).Once()
				m.accounts.On("Create", mock.Anything, mock.MatchedBy(func(a *account.Account) bool {
					return a.IsAutoCreated && a.IsActive && a.IsVerified && a.Email == "sari@example.com" && a.ActivationTokenHash != ""
				})).Return(nil)
				m.txns.On("Create", mock.Anything, mock.MatchedBy(func(txn *payment.Transaction) bool {
					return txn.OrderCode == "ORD-ABCD2345" && txn.Amount == 150000 && txn.AutoCreatedOwner && txn.Status == payment.StatusPending
				})).Return(nil)
				m.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
					return o.OrderCode == "ORD-ABCD2345" && o.Status == order.StatusPending
				})).Return(nil)
				m.gateway.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req gateway.ChargeRequest) bool {
					return req.TransactionDetails.OrderID == "ORD-ABCD2345" &&
						req.TransactionDetails.GrossAmount == 150000 &&
						req.CustomerDetails.Email == "sari@example.com" &&
						req.CustomerDetails.Phone == "+628123456789" &&
						len(req.ItemDetails) == 1 && req.ItemDetails[0].Name == "Go Basics" &&
						req.Callbacks.Finish == "https://shop.test/payments/status?order_id=ORD-ABCD2345"
				})).Return(charge, nil)
				m.txns.On("SetPaymentToken", mock.Anything, "ORD-ABCD2345", "snap-token", charge.RedirectURL).Return(nil)
				m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(in NotificationInput) bool {
					return in.NewStatus == payment.StatusPending && in.PriorStatus == "" && in.ActivationToken != "" && in.ItemName == "Go Basics"
				})).Return(nil)
				m.audit.On("Append", mock.Anything, mock.MatchedBy(func(r *audit.Record) bool {
					return r.Kind == audit.KindIntentCreated && r.OrderCode == "ORD-ABCD2345"
				})).Return(nil)
			},
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				require.NoError(t, err)
				assert.Equal(t, "ORD-ABCD2345", result.OrderCode)
				assert.Equal(t, "snap-token", result.Token)
				assert.Equal(t, charge.RedirectURL, result.RedirectURL)
				m.orders.AssertNotCalled(t, "ExistsOpenForOwner", mock.Anything, mock.Anything, mock.Anything)
				m.compensator.AssertNotCalled(t, "Compensate", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:    "returning buyer reuses the account",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(existing, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(existing, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(offering, nil)
				m.orders.On("ExistsOpenForOwner", mock.Anything, existing.ID, item).Return(false, nil)
				m.codes.On("Generate", mock.Anything).Return("ORD-ABCD2345", nil)
				m.db.On("ExecuteTx", mock.Anything).Return(nil).Once()
				m.txns.On("Create", mock.Anything, mock.MatchedBy(func(txn *payment.Transaction) bool {
					return txn.OwnerUserID == existing.ID && !txn.AutoCreatedOwner
				})).Return(nil)
				m.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.gateway.On("CreateCharge", mock.Anything, mock.Anything).Return(charge, nil)
				m.txns.On("SetPaymentToken", mock.Anything, "ORD-ABCD2345", "snap-token", charge.RedirectURL).Return(nil)
				m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(in NotificationInput) bool {
					return in.Account == existing && in.ActivationToken == ""
				})).Return(nil)
				m.audit.On("Append", mock.Anything, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				require.NoError(t, err)
				assert.Equal(t, "ORD-ABCD2345", result.OrderCode)
				m.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name:    "email and phone owned by different accounts",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(existing, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(other, nil)
			},
			expectedErr: payment.ErrIdentityConflict,
		},
		{
			name:    "phone does not match the account found by email",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				mismatched := *existing
				mismatched.Phone = "+628999999999"
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(&mismatched, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(nil, nil)
			},
			expectedErr: payment.ErrIdentityConflict,
		},
		{
			name:    "open order for the same item",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(existing, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(existing, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(offering, nil)
				m.orders.On("ExistsOpenForOwner", mock.Anything, existing.ID, item).Return(true, nil)
			},
			expectedErr: payment.ErrDuplicateOrder,
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				m.db.AssertNotCalled(t, "ExecuteTx", mock.Anything)
				m.gateway.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
			},
		},
		{
			name:    "unknown offering",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(nil, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(nil, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(nil, catalog.ErrOfferingNotFound{Item: item})
			},
			expectedErr: payment.ErrNotFound,
		},
		{
			name: "invalid fields are all reported",
			request: &IntentRequest{
				Name:  " ",
				Email: "not-an-email",
				Phone: "12",
				Item:  payment.ItemRef{Kind: "webinar", ID: uuid.New()},
			},
			setupMocks:  func(m *intentMocks) {},
			expectedErr: payment.ErrValidation,
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				var problems payment.ValidationErrors
				require.True(t, errors.As(err, &problems))
				assert.Len(t, problems, 4)
				m.accounts.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
			},
		},
		{
			name:    "gateway failure compensates and surfaces the gateway message",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(nil, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(nil, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(offering, nil)
				m.codes.On("Generate", mock.Anything).Return("ORD-ABCD2345", nil)
				m.db.On("ExecuteTx", mock.Anything).Return(nil).Twice()
				m.accounts.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.txns.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.gateway.On("CreateCharge", mock.Anything, mock.Anything).
					Return(nil, &gateway.Error{StatusCode: 400, Messages: []string{"gross_amount is invalid"}})
				m.compensator.On("Compensate", mock.Anything, "ORD-ABCD2345", mock.AnythingOfType("uuid.UUID")).Return(nil)
				m.audit.On("Append", mock.Anything, mock.MatchedBy(func(r *audit.Record) bool {
					return r.Kind == audit.KindIntentFailed && r.Detail == "gross_amount is invalid"
				})).Return(nil)
			},
			expectedErr: payment.ErrGateway,
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				assert.Nil(t, result)
				var gwErr *payment.GatewayError
				require.True(t, errors.As(err, &gwErr))
				assert.Equal(t, "gross_amount is invalid", gwErr.Message)
				m.txns.AssertNotCalled(t, "SetPaymentToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				m.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
			},
		},
		{
			name:    "gateway timeout is a gateway failure",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(existing, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(existing, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(offering, nil)
				m.orders.On("ExistsOpenForOwner", mock.Anything, existing.ID, item).Return(false, nil)
				m.codes.On("Generate", mock.Anything).Return("ORD-ABCD2345", nil)
				m.db.On("ExecuteTx", mock.Anything).Return(nil).Twice()
				m.txns.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.gateway.On("CreateCharge", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)
				m.compensator.On("Compensate", mock.Anything, "ORD-ABCD2345", existing.ID).Return(nil)
				m.audit.On("Append", mock.Anything, mock.Anything).Return(nil)
			},
			expectedErr: payment.ErrGateway,
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				assert.Contains(t, err.Error(), "timed out")
			},
		},
		{
			name:    "order code taken at insert is regenerated once",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(existing, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(existing, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(offering, nil)
				m.orders.On("ExistsOpenForOwner", mock.Anything, existing.ID, item).Return(false, nil)
				m.codes.On("Generate", mock.Anything).Return("ORD-AAAA2222", nil).Once()
				m.codes.On("Generate", mock.Anything).Return("ORD-BBBB3333", nil).Once()
				m.db.On("ExecuteTx", mock.Anything).Return(nil).Twice()
				m.txns.On("Create", mock.Anything, mock.MatchedBy(func(txn *payment.Transaction) bool {
					return txn.OrderCode == "ORD-AAAA2222"
				})).Return(payment.ErrDuplicateOrderCode{OrderCode: "ORD-AAAA2222"}).Once()
				m.txns.On("Create", mock.Anything, mock.MatchedBy(func(txn *payment.Transaction) bool {
					return txn.OrderCode == "ORD-BBBB3333"
				})).Return(nil).Once()
				m.orders.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
				m.gateway.On("CreateCharge", mock.Anything, mock.Anything).Return(charge, nil)
				m.txns.On("SetPaymentToken", mock.Anything, "ORD-BBBB3333", "snap-token", charge.RedirectURL).Return(nil)
				m.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
				m.audit.On("Append", mock.Anything, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				require.NoError(t, err)
				assert.Equal(t, "ORD-BBBB3333", result.OrderCode)
			},
		},
		{
			name:    "notification failure does not fail the intent",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(existing, nil)
				m.accounts.On("GetByPhone", mock.Anything, "+628123456789").Return(existing, nil)
				m.catalog.On("GetOffering", mock.Anything, item).Return(offering, nil)
				m.orders.On("ExistsOpenForOwner", mock.Anything, existing.ID, item).Return(false, nil)
				m.codes.On("Generate", mock.Anything).Return("ORD-ABCD2345", nil)
				m.db.On("ExecuteTx", mock.Anything).Return(nil).Once()
				m.txns.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.gateway.On("CreateCharge", mock.Anything, mock.Anything).Return(charge, nil)
				m.txns.On("SetPaymentToken", mock.Anything, "ORD-ABCD2345", "snap-token", charge.RedirectURL).Return(nil)
				m.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("outbox unavailable"))
				m.audit.On("Append", mock.Anything, mock.Anything).Return(errors.New("mongo down"))
			},
			check: func(t *testing.T, result *IntentResult, err error, m *intentMocks) {
				require.NoError(t, err)
				assert.Equal(t, "snap-token", result.Token)
			},
		},
		{
			name:    "store unavailable during lookup",
			request: validRequest(),
			setupMocks: func(m *intentMocks) {
				m.accounts.On("GetByEmail", mock.Anything, "sari@example.com").Return(nil, errors.New("connection refused"))
			},
			expectedErr: payment.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newIntentService()
			tt.setupMocks(m)

			result, err := svc.CreateIntent(context.Background(), tt.request)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, result)
			}
			if tt.check != nil {
				tt.check(t, result, err, m)
			}
			m.assertAll(t)
		})
	}
}
