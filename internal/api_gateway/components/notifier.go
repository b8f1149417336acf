package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/catalog"
	"github.com/course-commerce-payments/internal/domain/notification"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
)

// NotifierImpl implements the Notifier interface by writing outbox rows
// that the notification dispatcher later turns into emails.
type NotifierImpl struct {
	accountRepo account.Repository
	catalogRepo catalog.Repository
	outboxRepo  notification.Repository
	logger      *slog.Logger
}

// NewNotifier creates a new NotifierImpl
func NewNotifier(
	accountRepo account.Repository,
	catalogRepo catalog.Repository,
	outboxRepo notification.Repository,
	logger *slog.Logger,
) service.Notifier {
	return &NotifierImpl{
		accountRepo: accountRepo,
		catalogRepo: catalogRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

// Notify enqueues the email announcing input.NewStatus. Replays of a completion and
// pending refreshes are skipped. With a non-nil tx the writes run under a savepoint,
// so a failure here leaves the caller's transaction usable.
func (n *NotifierImpl) Notify(ctx context.Context, tx pgx.Tx, input service.NotificationInput) error {
	log := logger.ForContext(n.logger, ctx)

	if input.Transaction == nil {
		return errors.New("notification input has no transaction")
	}
	if input.NewStatus == input.PriorStatus && (input.NewStatus == payment.StatusCompleted || input.NewStatus == payment.StatusPending) {
		log.Debug("Skipping repeated notification", "order_code", input.Transaction.OrderCode, "status", string(input.NewStatus))
		return nil
	}

	if tx == nil {
		return n.enqueue(ctx, n.accountRepo, n.outboxRepo, input)
	}

	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open notification savepoint: %w", err)
	}

	if err := n.enqueue(ctx, n.accountRepo.WithTx(savepoint), n.outboxRepo.WithTx(savepoint), input); err != nil {
		if rbErr := savepoint.Rollback(ctx); rbErr != nil {
			log.Error("Failed to roll back notification savepoint", "order_code", input.Transaction.OrderCode, "error", rbErr)
		}
		return err
	}

	if err := savepoint.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release notification savepoint: %w", err)
	}
	return nil
}

func (n *NotifierImpl) enqueue(ctx context.Context, accountRepo account.Repository, outboxRepo notification.Repository, input service.NotificationInput) error {
	log := logger.ForContext(n.logger, ctx)
	txn := input.Transaction

	kind, err := notification.KindForStatus(input.NewStatus)
	if err != nil {
		return err
	}

	owner := input.Account
	if owner == nil {
		owner, err = accountRepo.GetByID(ctx, txn.OwnerUserID)
		if err != nil {
			log.Error("Failed to load notification recipient", "order_code", txn.OrderCode, "owner_id", txn.OwnerUserID.String(), "error", err)
			return fmt.Errorf("failed to load recipient for %s: %w", txn.OrderCode, err)
		}
	}

	itemName := input.ItemName
	if itemName == "" {
		offering, err := n.catalogRepo.GetOffering(ctx, txn.Item)
		if err != nil {
			log.Warn("Offering lookup failed, using item reference as name", "order_code", txn.OrderCode, "item", txn.Item.String(), "error", err)
			itemName = txn.Item.String()
		} else {
			itemName = offering.Name
		}
	}

	event := &notification.Event{
		OrderCode:       txn.OrderCode,
		Kind:            kind,
		Recipient:       notification.Recipient{Name: owner.Name, Email: owner.Email},
		Item:            txn.Item,
		ItemName:        itemName,
		Amount:          txn.Amount,
		RedirectURL:     input.RedirectURL,
		ActivationToken: input.ActivationToken,
		CorrelationID:   logger.CorrelationID(ctx),
		OccurredAt:      time.Now().UTC(),
	}

	message, err := notification.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to encode notification event: %w", err)
	}

	if err := outboxRepo.Create(ctx, message); err != nil {
		log.Error("Failed to enqueue notification", "order_code", txn.OrderCode, "kind", string(kind), "error", err)
		return fmt.Errorf("failed to enqueue %s notification: %w", kind, err)
	}

	log.Info("Notification enqueued", "order_code", txn.OrderCode, "kind", string(kind), "event_id", message.EventID.String())
	return nil
}
