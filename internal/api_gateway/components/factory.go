package components

import (
	"log/slog"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/config"
	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/audit"
	"github.com/course-commerce-payments/internal/domain/catalog"
	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/persistence"
)

// Repositories bundles the stores the payment services work against
type Repositories struct {
	Accounts     account.Repository
	Transactions payment.Repository
	Orders       order.Repository
	Catalog      catalog.Repository
	Outbox       notification.Repository
	Audit        audit.Repository
}

// PaymentServices are the services exposed over HTTP
type PaymentServices struct {
	Intent     service.PaymentIntentService
	Reconciler service.WebhookReconciler
	Query      service.PaymentQueryService
}

// CreatePaymentServices wires the components shared by intent creation and webhook
// reconciliation into the public services.
func CreatePaymentServices(
	db persistence.Transactor,
	repos Repositories,
	gatewayClient service.GatewayClient,
	verifier service.SignatureVerifier,
	logger *slog.Logger,
	cfg *config.Config,
) *PaymentServices {
	synchronizer := NewEntitySynchronizer(repos.Accounts, repos.Orders, logger.With("component", "entity_synchronizer"))
	compensator := NewCompensator(repos.Transactions, repos.Orders, repos.Accounts, repos.Audit, logger.With("component", "compensator"))
	notifier := NewNotifier(repos.Accounts, repos.Catalog, repos.Outbox, logger.With("component", "notifier"))
	codes := payment.NewOrderCodeGenerator(repos.Transactions.ExistsByOrderCode)

	intent := service.NewPaymentIntentService(logger.With("component", "payment_intent"), service.PaymentIntentDeps{
		DB:              db,
		AccountRepo:     repos.Accounts,
		TransactionRepo: repos.Transactions,
		OrderRepo:       repos.Orders,
		CatalogRepo:     repos.Catalog,
		AuditRepo:       repos.Audit,
		Codes:           codes,
		Gateway:         gatewayClient,
		Compensator:     compensator,
		Notifier:        notifier,
		GatewayTimeout:  cfg.Gateway.Timeout,
	})

	reconciler := service.NewWebhookReconciler(logger.With("component", "webhook_reconciler"), service.WebhookReconcilerDeps{
		DB:              db,
		TransactionRepo: repos.Transactions,
		AuditRepo:       repos.Audit,
		Verifier:        verifier,
		Synchronizer:    synchronizer,
		Notifier:        notifier,
		Compensator:     compensator,
	})

	logger.Info("Created payment services", "gateway_timeout", cfg.Gateway.Timeout)

	return &PaymentServices{
		Intent:     intent,
		Reconciler: reconciler,
		Query:      service.NewPaymentQueryService(logger.With("component", "payment_query"), repos.Transactions, repos.Orders),
	}
}
