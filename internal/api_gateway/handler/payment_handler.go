package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/course-commerce-payments/internal/api_gateway/service"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/logger"
)

// PaymentHandler processes payment intent and status requests
type PaymentHandler struct {
	intentService service.PaymentIntentService
	queryService  service.PaymentQueryService
	logger        *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, intentService service.PaymentIntentService, queryService service.PaymentQueryService) *PaymentHandler {
	return &PaymentHandler{
		intentService: intentService,
		queryService:  queryService,
		logger:        logger,
	}
}

// Create opens a payment for the buyer and returns the gateway token
func (h *PaymentHandler) Create(c *gin.Context) {
	log := logger.ForContext(h.logger, c.Request.Context())

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("Failed to bind payment request", "error", err)
		RespondBadRequest(c, "Invalid request format")
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		RespondBadRequest(c, "Invalid item id")
		return
	}

	item, err := payment.NewItemRef(req.ItemKind, itemID)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.intentService.CreateIntent(c.Request.Context(), &service.IntentRequest{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Item:  item,
	})
	if err != nil {
		h.respondIntentError(c, log, err)
		return
	}

	RespondCreated(c, mapIntentResultToResponse(result))
}

// GetByOrderCode reports the current status of a payment
func (h *PaymentHandler) GetByOrderCode(c *gin.Context) {
	orderCode := c.Param("order_code")
	if !payment.IsOrderCode(orderCode) {
		RespondBadRequest(c, "Invalid order code")
		return
	}

	view, err := h.queryService.GetPayment(c.Request.Context(), orderCode)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			RespondNotFound(c, "Payment not found")
			return
		}
		logger.ForContext(h.logger, c.Request.Context()).Error("Failed to get payment", "error", err, "order_code", orderCode)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapPaymentViewToResponse(view))
}

func (h *PaymentHandler) respondIntentError(c *gin.Context, log *slog.Logger, err error) {
	var gatewayErr *payment.GatewayError

	switch {
	case errors.Is(err, payment.ErrValidation):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, payment.ErrIdentityConflict):
		RespondConflict(c, CodeIdentityConflict, "Email or phone already belongs to another account")
	case errors.Is(err, payment.ErrDuplicateOrder):
		RespondConflict(c, CodeDuplicateOrder, "An open order already exists for this item")
	case errors.Is(err, payment.ErrNotFound):
		RespondNotFound(c, "Item is not available for purchase")
	case errors.As(err, &gatewayErr):
		log.Warn("Payment gateway rejected intent", "error", err)
		RespondBadGateway(c, gatewayErr.Error())
	default:
		log.Error("Failed to create payment intent", "error", err)
		RespondInternalError(c)
	}
}
