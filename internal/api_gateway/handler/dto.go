package handler

import (
	"github.com/course-commerce-payments/internal/api_gateway/service"
)

// CreatePaymentRequest represents a buyer's request to pay for an item
type CreatePaymentRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	ItemKind string `json:"item_kind" binding:"required"`
	ItemID   string `json:"item_id" binding:"required,uuid"`
}

// PaymentIntentResponse is returned after a charge is opened
type PaymentIntentResponse struct {
	OrderCode   string `json:"order_code"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentStatusResponse represents a payment in API responses
type PaymentStatusResponse struct {
	OrderCode   string `json:"order_code"`
	Status      string `json:"status"`
	OrderStatus string `json:"order_status,omitempty"`
	ItemKind    string `json:"item_kind"`
	ItemID      string `json:"item_id"`
	Amount      int64  `json:"amount"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

func mapIntentResultToResponse(result *service.IntentResult) PaymentIntentResponse {
	return PaymentIntentResponse{
		OrderCode:   result.OrderCode,
		Token:       result.Token,
		RedirectURL: result.RedirectURL,
	}
}

func mapPaymentViewToResponse(view *service.PaymentView) PaymentStatusResponse {
	return PaymentStatusResponse{
		OrderCode:   view.OrderCode,
		Status:      string(view.Status),
		OrderStatus: string(view.OrderStatus),
		ItemKind:    string(view.Item.Kind),
		ItemID:      view.Item.ID.String(),
		Amount:      view.Amount,
		RedirectURL: view.RedirectURL,
	}
}
