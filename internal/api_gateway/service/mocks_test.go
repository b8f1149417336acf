package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/audit"
	"github.com/course-commerce-payments/internal/domain/catalog"
	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/gateway"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockTransactor runs the unit of work without a database transaction
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(nil)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) GetByPhone(ctx context.Context, phone string) (*account.Account, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) Activate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepo) DeleteIfOrphaned(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, txn *payment.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetByOrderCode(ctx context.Context, orderCode string) (*payment.Transaction, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) ExistsByOrderCode(ctx context.Context, orderCode string) (bool, error) {
	args := m.Called(ctx, orderCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepo) SetPaymentToken(ctx context.Context, orderCode, token, redirectURL string) error {
	args := m.Called(ctx, orderCode, token, redirectURL)
	return args.Error(0)
}

func (m *MockTransactionRepo) UpdateSnapshot(ctx context.Context, orderCode string, snapshot json.RawMessage) error {
	args := m.Called(ctx, orderCode, snapshot)
	return args.Error(0)
}

func (m *MockTransactionRepo) TransitionFromPending(ctx context.Context, orderCode string, status payment.Status, snapshot json.RawMessage) (bool, error) {
	args := m.Called(ctx, orderCode, status, snapshot)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepo) Delete(ctx context.Context, orderCode string) error {
	args := m.Called(ctx, orderCode)
	return args.Error(0)
}

func (m *MockTransactionRepo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepo) GetByOrderCode(ctx context.Context, orderCode string) (*order.Order, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, orderCode string, status order.Status) error {
	args := m.Called(ctx, orderCode, status)
	return args.Error(0)
}

func (m *MockOrderRepo) DeleteByOrderCode(ctx context.Context, orderCode string) error {
	args := m.Called(ctx, orderCode)
	return args.Error(0)
}

func (m *MockOrderRepo) ExistsOpenForOwner(ctx context.Context, ownerID uuid.UUID, item payment.ItemRef) (bool, error) {
	args := m.Called(ctx, ownerID, item)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepo) WithTx(tx pgx.Tx) order.Repository {
	return m
}

type MockCatalogRepo struct {
	mock.Mock
}

func (m *MockCatalogRepo) GetOffering(ctx context.Context, item payment.ItemRef) (*catalog.Offering, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Offering), args.Error(1)
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Append(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepo) ListByOrderCode(ctx context.Context, orderCode string, limit int) ([]*audit.Record, error) {
	args := m.Called(ctx, orderCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

type MockCodeGenerator struct {
	mock.Mock
}

func (m *MockCodeGenerator) Generate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateCharge(ctx context.Context, charge gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	args := m.Called(ctx, charge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResponse), args.Error(1)
}

func (m *MockGatewayClient) FinishURL(orderCode string) string {
	return "https://shop.test/payments/status?order_id=" + orderCode
}

type MockSignatureVerifier struct {
	mock.Mock
}

func (m *MockSignatureVerifier) Verify(orderID, statusCode, grossAmount, signature string) error {
	args := m.Called(orderID, statusCode, grossAmount, signature)
	return args.Error(0)
}

type MockSynchronizer struct {
	mock.Mock
}

func (m *MockSynchronizer) Sync(ctx context.Context, tx pgx.Tx, txn *payment.Transaction, status payment.Status) error {
	args := m.Called(ctx, txn, status)
	return args.Error(0)
}

type MockCompensator struct {
	mock.Mock
}

func (m *MockCompensator) Compensate(ctx context.Context, tx pgx.Tx, orderCode string, ownerID uuid.UUID) error {
	args := m.Called(ctx, orderCode, ownerID)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, tx pgx.Tx, input NotificationInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}
