package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/course-commerce-payments/internal/domain/audit"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
	"github.com/course-commerce-payments/internal/metrics"
	"github.com/course-commerce-payments/internal/platform/gateway"
	"github.com/course-commerce-payments/internal/platform/persistence"
)

// WebhookReconcilerImpl implements the WebhookReconciler interface
type WebhookReconcilerImpl struct {
	db              persistence.Transactor
	transactionRepo payment.Repository
	auditRepo       audit.Repository
	verifier        SignatureVerifier
	synchronizer    EntitySynchronizer
	notifier        Notifier
	compensator     Compensator
	logger          *slog.Logger
}

// WebhookReconcilerDeps groups the collaborators of the reconciler
type WebhookReconcilerDeps struct {
	DB              persistence.Transactor
	TransactionRepo payment.Repository
	AuditRepo       audit.Repository
	Verifier        SignatureVerifier
	Synchronizer    EntitySynchronizer
	Notifier        Notifier
	Compensator     Compensator
}

// NewWebhookReconciler creates a new webhook reconciler
func NewWebhookReconciler(logger *slog.Logger, deps WebhookReconcilerDeps) WebhookReconciler {
	return &WebhookReconcilerImpl{
		db:              deps.DB,
		transactionRepo: deps.TransactionRepo,
		auditRepo:       deps.AuditRepo,
		verifier:        deps.Verifier,
		synchronizer:    deps.Synchronizer,
		notifier:        deps.Notifier,
		compensator:     deps.Compensator,
		logger:          logger,
	}
}

// Reconcile verifies the signature before touching any record, then applies the
// notification. Status only ever moves out of pending, through one conditional
// update, so duplicated or reordered deliveries cannot change a terminal state.
func (r *WebhookReconcilerImpl) Reconcile(ctx context.Context, n *gateway.Notification, raw json.RawMessage) (Outcome, error) {
	log := logger.ForContext(r.logger, ctx).With(
		"order_code", n.OrderID,
		"transaction_status", n.TransactionStatus,
	)

	if err := r.verifier.Verify(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey); err != nil {
		if errors.Is(err, gateway.ErrMissingServerKey) {
			log.Error("Webhook received but gateway server key is not configured")
			metrics.WebhooksTotal.WithLabelValues("misconfigured").Inc()
			return "", payment.ErrMisconfigured
		}
		log.Warn("Webhook signature rejected")
		metrics.WebhooksTotal.WithLabelValues("invalid_signature").Inc()
		return "", payment.ErrInvalidSignature
	}

	if len(raw) == 0 {
		encoded, err := json.Marshal(n)
		if err != nil {
			return "", err
		}
		raw = encoded
	}

	txn, err := r.transactionRepo.GetByOrderCode(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			log.Info("Webhook for unknown order acknowledged")
			r.appendAudit(ctx, n, raw, "", "", OutcomeNotFound)
			metrics.WebhooksTotal.WithLabelValues(string(OutcomeNotFound)).Inc()
			return OutcomeNotFound, nil
		}
		log.Error("Failed to load transaction for webhook", "error", err)
		return "", persistenceError("load transaction", err)
	}

	newStatus, known := payment.FromGatewayStatus(n.TransactionStatus, n.FraudStatus)
	if known && !r.amountMatches(log, txn, n.GrossAmount) {
		known = false
	}

	var outcome Outcome
	err = r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var applyErr error
		outcome, applyErr = r.apply(ctx, tx, txn, newStatus, known, raw)
		return applyErr
	})
	if err != nil {
		log.Error("Failed to apply webhook", "error", err)
		metrics.WebhooksTotal.WithLabelValues("error").Inc()
		return "", persistenceError("apply webhook", err)
	}

	statusAfter := txn.Status
	if outcome == OutcomeTransitioned {
		statusAfter = newStatus
	}
	r.appendAudit(ctx, n, raw, txn.Status, statusAfter, outcome)
	metrics.WebhooksTotal.WithLabelValues(string(outcome)).Inc()

	log.Info("Webhook reconciled",
		"outcome", string(outcome),
		"status_before", string(txn.Status),
		"status_after", string(statusAfter),
	)
	return outcome, nil
}

// apply runs inside one database transaction
func (r *WebhookReconcilerImpl) apply(ctx context.Context, tx pgx.Tx, txn *payment.Transaction, newStatus payment.Status, known bool, snapshot json.RawMessage) (Outcome, error) {
	log := logger.ForContext(r.logger, ctx).With("order_code", txn.OrderCode)
	txnRepo := r.transactionRepo.WithTx(tx)

	if !known || newStatus == payment.StatusPending {
		if err := r.refreshSnapshot(ctx, txnRepo, txn.OrderCode, snapshot); err != nil {
			return "", err
		}
		return OutcomeSnapshotOnly, nil
	}

	transitioned, err := txnRepo.TransitionFromPending(ctx, txn.OrderCode, newStatus, snapshot)
	if err != nil {
		return "", err
	}
	if !transitioned {
		if err := r.refreshSnapshot(ctx, txnRepo, txn.OrderCode, snapshot); err != nil {
			return "", err
		}
		if txn.Status == newStatus {
			return OutcomeAcknowledged, nil
		}
		log.Info("Late webhook ignored for settled transaction", "status", string(txn.Status), "incoming", string(newStatus))
		return OutcomeSnapshotOnly, nil
	}

	if err := r.synchronizer.Sync(ctx, tx, txn, newStatus); err != nil {
		return "", err
	}

	notifyErr := r.notifier.Notify(ctx, tx, NotificationInput{
		Transaction: txn,
		NewStatus:   newStatus,
		PriorStatus: payment.StatusPending,
	})
	if notifyErr != nil {
		log.Error("Failed to enqueue outcome notification", "status", string(newStatus), "error", notifyErr)
	}

	if newStatus.IsNegative() {
		if err := r.compensator.Compensate(ctx, tx, txn.OrderCode, txn.OwnerUserID); err != nil {
			return "", err
		}
	}

	return OutcomeTransitioned, nil
}

// refreshSnapshot stores the payload; a row removed meanwhile is not an error
func (r *WebhookReconcilerImpl) refreshSnapshot(ctx context.Context, txnRepo payment.Repository, orderCode string, snapshot json.RawMessage) error {
	if err := txnRepo.UpdateSnapshot(ctx, orderCode, snapshot); err != nil && !errors.Is(err, payment.ErrNotFound) {
		return err
	}
	return nil
}

// amountMatches compares the notified gross amount with the stored amount
func (r *WebhookReconcilerImpl) amountMatches(log *slog.Logger, txn *payment.Transaction, grossAmount string) bool {
	amount, err := gateway.ParseGrossAmount(grossAmount)
	if err != nil {
		log.Warn("Webhook gross amount unreadable, keeping snapshot only", "gross_amount", grossAmount, "error", err)
		return false
	}
	if amount != txn.Amount {
		log.Warn("Webhook gross amount differs from transaction, keeping snapshot only", "gross_amount", amount, "amount", txn.Amount)
		return false
	}
	return true
}

func (r *WebhookReconcilerImpl) appendAudit(ctx context.Context, n *gateway.Notification, raw json.RawMessage, before, after payment.Status, outcome Outcome) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err == nil {
		delete(payload, "signature_key")
	}

	record := &audit.Record{
		Kind:          audit.KindWebhookReceived,
		OrderCode:     n.OrderID,
		GatewayStatus: n.TransactionStatus,
		StatusBefore:  string(before),
		StatusAfter:   string(after),
		Detail:        string(outcome),
		Payload:       payload,
		CorrelationID: logger.CorrelationID(ctx),
	}
	if err := r.auditRepo.Append(ctx, record); err != nil {
		logger.ForContext(r.logger, ctx).Warn("Failed to append webhook audit record", "order_code", n.OrderID, "error", err)
	}
}
