package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/course-commerce-payments/internal/domain/account"
	"github.com/course-commerce-payments/internal/domain/audit"
	"github.com/course-commerce-payments/internal/domain/catalog"
	"github.com/course-commerce-payments/internal/domain/order"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
	"github.com/course-commerce-payments/internal/metrics"
	"github.com/course-commerce-payments/internal/platform/gateway"
	"github.com/course-commerce-payments/internal/platform/persistence"
)

// orderCodeInsertAttempts bounds inserts after the unique index rejects a fresh code
const orderCodeInsertAttempts = 2

// PaymentIntentServiceImpl implements the PaymentIntentService interface
type PaymentIntentServiceImpl struct {
	db              persistence.Transactor
	accountRepo     account.Repository
	transactionRepo payment.Repository
	orderRepo       order.Repository
	catalogRepo     catalog.Repository
	auditRepo       audit.Repository
	codes           OrderCodeGenerator
	gatewayClient   GatewayClient
	compensator     Compensator
	notifier        Notifier
	gatewayTimeout  time.Duration
	logger          *slog.Logger
}

// PaymentIntentDeps groups the collaborators of the intent service
type PaymentIntentDeps struct {
	DB              persistence.Transactor
	AccountRepo     account.Repository
	TransactionRepo payment.Repository
	OrderRepo       order.Repository
	CatalogRepo     catalog.Repository
	AuditRepo       audit.Repository
	Codes           OrderCodeGenerator
	Gateway         GatewayClient
	Compensator     Compensator
	Notifier        Notifier
	GatewayTimeout  time.Duration
}

// NewPaymentIntentService creates a new payment intent service
func NewPaymentIntentService(logger *slog.Logger, deps PaymentIntentDeps) PaymentIntentService {
	return &PaymentIntentServiceImpl{
		db:              deps.DB,
		accountRepo:     deps.AccountRepo,
		transactionRepo: deps.TransactionRepo,
		orderRepo:       deps.OrderRepo,
		catalogRepo:     deps.CatalogRepo,
		auditRepo:       deps.AuditRepo,
		codes:           deps.Codes,
		gatewayClient:   deps.Gateway,
		compensator:     deps.Compensator,
		notifier:        deps.Notifier,
		gatewayTimeout:  deps.GatewayTimeout,
		logger:          logger,
	}
}

// CreateIntent validates the request, resolves the buyer, records the pending
// attempt and opens a charge. A failed charge is compensated before returning.
func (s *PaymentIntentServiceImpl) CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResult, error) {
	log := logger.ForContext(s.logger, ctx)

	email, phone, err := validateIntentRequest(req)
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	owner, err := s.resolveAccount(ctx, email, phone)
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	offering, err := s.catalogRepo.GetOffering(ctx, req.Item)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			log.Info("Offering not available", "item", req.Item.String())
			metrics.PaymentIntentsTotal.WithLabelValues("rejected").Inc()
			return nil, err
		}
		return nil, persistenceError("load offering", err)
	}

	var activationToken string
	autoCreated := owner == nil
	if autoCreated {
		owner, activationToken, err = account.NewAutoCreatedAccount(req.Name, email, phone)
		if err != nil {
			return nil, payment.ValidationError{Field: "account", Message: err.Error()}
		}
	} else {
		open, err := s.orderRepo.ExistsOpenForOwner(ctx, owner.ID, req.Item)
		if err != nil {
			return nil, persistenceError("check open orders", err)
		}
		if open {
			log.Info("Open order already exists", "account_id", owner.ID.String(), "item", req.Item.String())
			metrics.PaymentIntentsTotal.WithLabelValues("rejected").Inc()
			return nil, payment.DuplicateOrderError{Item: req.Item}
		}
	}

	txn, err := s.createRecords(ctx, owner, autoCreated, offering)
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	log = log.With("order_code", txn.OrderCode)
	log.Info("Payment attempt recorded", "account_id", owner.ID.String(), "auto_created", autoCreated, "amount", txn.Amount)

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	charge, err := s.gatewayClient.CreateCharge(gatewayCtx, s.buildCharge(txn, owner, offering))
	cancel()
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("gateway_error").Inc()
		return nil, s.failIntent(ctx, txn, err)
	}

	if err := s.transactionRepo.SetPaymentToken(ctx, txn.OrderCode, charge.Token, charge.RedirectURL); err != nil {
		// The payment page is already live; the webhook reconciles by order code either way.
		log.Error("Failed to store payment token", "error", err)
	}
	txn.PaymentToken = charge.Token
	txn.RedirectURL = charge.RedirectURL

	notifyErr := s.notifier.Notify(ctx, nil, NotificationInput{
		Transaction:     txn,
		Account:         owner,
		ItemName:        offering.Name,
		NewStatus:       payment.StatusPending,
		ActivationToken: activationToken,
		RedirectURL:     charge.RedirectURL,
	})
	if notifyErr != nil {
		log.Error("Failed to enqueue pending notification", "error", notifyErr)
	}

	s.appendAudit(ctx, &audit.Record{
		Kind:        audit.KindIntentCreated,
		OrderCode:   txn.OrderCode,
		StatusAfter: string(payment.StatusPending),
		Amount:      txn.Amount,
		Detail:      txn.Item.String(),
	})

	metrics.PaymentIntentsTotal.WithLabelValues("created").Inc()
	log.Info("Payment intent created")

	return &IntentResult{
		OrderCode:   txn.OrderCode,
		Token:       charge.Token,
		RedirectURL: charge.RedirectURL,
	}, nil
}

// resolveAccount looks the buyer up by email and by phone. It returns nil when
// neither identifier is known.
func (s *PaymentIntentServiceImpl) resolveAccount(ctx context.Context, email, phone string) (*account.Account, error) {
	byEmail, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, persistenceError("look up account by email", err)
	}
	byPhone, err := s.accountRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, persistenceError("look up account by phone", err)
	}

	if byEmail == nil && byPhone == nil {
		return nil, nil
	}
	if byEmail != nil && byPhone != nil && byEmail.ID != byPhone.ID {
		return nil, payment.IdentityConflictError{Reason: "email and phone belong to different accounts"}
	}

	existing := byEmail
	if existing == nil {
		existing = byPhone
	}
	if !existing.MatchesIdentity(email, phone) {
		return nil, payment.IdentityConflictError{Reason: "email and phone do not match the existing account"}
	}
	return existing, nil
}

// createRecords writes the account (when new), transaction and order in one database
// transaction. A code taken between generation and insert gets one fresh attempt.
func (s *PaymentIntentServiceImpl) createRecords(ctx context.Context, owner *account.Account, autoCreated bool, offering *catalog.Offering) (*payment.Transaction, error) {
	log := logger.ForContext(s.logger, ctx)

	for attempt := 1; ; attempt++ {
		orderCode, err := s.codes.Generate(ctx)
		if err != nil {
			return nil, persistenceError("generate order code", err)
		}

		txn, err := payment.NewTransaction(orderCode, offering.Item, offering.Price, owner.ID, autoCreated)
		if err != nil {
			return nil, payment.ValidationError{Field: "item", Message: err.Error()}
		}

		err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if autoCreated {
				if err := s.accountRepo.WithTx(tx).Create(ctx, owner); err != nil {
					return err
				}
			}
			if err := s.transactionRepo.WithTx(tx).Create(ctx, txn); err != nil {
				return err
			}
			return s.orderRepo.WithTx(tx).Create(ctx, order.NewOrder(txn))
		})
		if err == nil {
			return txn, nil
		}

		var dupCode payment.ErrDuplicateOrderCode
		if errors.As(err, &dupCode) && attempt < orderCodeInsertAttempts {
			log.Warn("Order code taken at insert, regenerating", "order_code", orderCode)
			continue
		}

		var dupIdentity account.ErrDuplicateIdentity
		if errors.As(err, &dupIdentity) {
			return nil, payment.IdentityConflictError{Reason: dupIdentity.Field + " was registered concurrently"}
		}

		log.Error("Failed to record payment attempt", "order_code", orderCode, "error", err)
		return nil, persistenceError("record payment attempt", err)
	}
}

func (s *PaymentIntentServiceImpl) buildCharge(txn *payment.Transaction, owner *account.Account, offering *catalog.Offering) gateway.ChargeRequest {
	finishURL := s.gatewayClient.FinishURL(txn.OrderCode)
	return gateway.ChargeRequest{
		TransactionDetails: gateway.TransactionDetails{
			OrderID:     txn.OrderCode,
			GrossAmount: txn.Amount,
		},
		CustomerDetails: gateway.CustomerDetails{
			FirstName: owner.Name,
			Email:     owner.Email,
			Phone:     owner.Phone,
		},
		ItemDetails: []gateway.ItemDetail{{
			ID:       txn.Item.String(),
			Price:    txn.Amount,
			Quantity: 1,
			Name:     offering.Name,
		}},
		Callbacks: &gateway.Callbacks{Finish: finishURL},
	}
}

// failIntent compensates the attempt and converts the gateway failure for the caller
func (s *PaymentIntentServiceImpl) failIntent(ctx context.Context, txn *payment.Transaction, gatewayErr error) error {
	log := logger.ForContext(s.logger, ctx).With("order_code", txn.OrderCode)
	log.Warn("Gateway charge failed, compensating", "error", gatewayErr)

	compErr := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return s.compensator.Compensate(ctx, tx, txn.OrderCode, txn.OwnerUserID)
	})
	if compErr != nil {
		log.Error("Failed to compensate payment attempt", "error", compErr)
	}

	message := gatewayMessage(gatewayErr)
	s.appendAudit(ctx, &audit.Record{
		Kind:         audit.KindIntentFailed,
		OrderCode:    txn.OrderCode,
		StatusBefore: string(payment.StatusPending),
		Amount:       txn.Amount,
		Detail:       message,
	})

	return &payment.GatewayError{Message: message, Err: gatewayErr}
}

func (s *PaymentIntentServiceImpl) appendAudit(ctx context.Context, record *audit.Record) {
	record.CorrelationID = logger.CorrelationID(ctx)
	if err := s.auditRepo.Append(ctx, record); err != nil {
		logger.ForContext(s.logger, ctx).Warn("Failed to append audit record", "order_code", record.OrderCode, "kind", string(record.Kind), "error", err)
	}
}

func gatewayMessage(err error) string {
	var gwErr *gateway.Error
	switch {
	case errors.As(err, &gwErr) && len(gwErr.Messages) > 0:
		return strings.Join(gwErr.Messages, "; ")
	case errors.As(err, &gwErr):
		return fmt.Sprintf("gateway responded with status %d", gwErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "gateway request timed out"
	default:
		return err.Error()
	}
}

func validateIntentRequest(req *IntentRequest) (email, phone string, err error) {
	var problems payment.ValidationErrors

	if strings.TrimSpace(req.Name) == "" {
		problems = append(problems, payment.ValidationError{Field: "name", Message: "is required"})
	}

	email, emailErr := account.NormalizeEmail(req.Email)
	if emailErr != nil {
		problems = append(problems, payment.ValidationError{Field: "email", Message: "must be a valid email address"})
	}

	phone, phoneErr := account.NormalizePhone(req.Phone)
	if phoneErr != nil {
		problems = append(problems, payment.ValidationError{Field: "phone", Message: "must contain 8 to 15 digits"})
	}

	if itemErr := req.Item.Validate(); itemErr != nil {
		problems = append(problems, payment.ValidationError{Field: "item", Message: itemErr.Error()})
	}

	if len(problems) > 0 {
		return "", "", problems
	}
	return email, phone, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", payment.ErrPersistence, op, err)
}
