package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/course-commerce-payments/internal/config"
	"github.com/course-commerce-payments/internal/platform/gateway"
	"github.com/course-commerce-payments/internal/platform/persistence"
)

func TestCreatePaymentServices(t *testing.T) {
	cfg := &config.Config{
		Gateway: config.GatewayConfig{
			BaseURL:       "https://gateway.test/snap/v1",
			ServerKey:     "server-key",
			Timeout:       5 * time.Second,
			FinishURLBase: "https://shop.test/payments/status",
		},
	}
	logger := newTestLogger()

	services := CreatePaymentServices(
		&persistence.PostgresDB{},
		Repositories{
			Accounts:     &MockAccountRepo{},
			Transactions: &MockTransactionRepo{},
			Orders:       &MockOrderRepo{},
			Catalog:      &MockCatalogRepo{},
			Outbox:       &MockOutboxRepo{},
			Audit:        &MockAuditRepo{},
		},
		gateway.NewClient(logger, &cfg.Gateway),
		gateway.NewSignatureVerifier(cfg.Gateway.ServerKey),
		logger,
		cfg,
	)

	require.NotNil(t, services)
	assert.NotNil(t, services.Intent)
	assert.NotNil(t, services.Reconciler)
	assert.NotNil(t, services.Query)
}
