// Package gateway talks to the hosted payment page provider: it opens charges and
// authenticates the notifications the provider sends back.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/course-commerce-payments/internal/config"
	"github.com/course-commerce-payments/internal/metrics"
)

const maxErrorBodyBytes = 64 << 10

// Client opens charges with the payment gateway
type Client struct {
	baseURL       string
	serverKey     string
	finishURLBase string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a gateway client bounded by cfg.Timeout
func NewClient(logger *slog.Logger, cfg *config.GatewayConfig) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		serverKey:     cfg.ServerKey,
		finishURLBase: cfg.FinishURLBase,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		logger:        logger,
	}
}

// FinishURL is the status page the payer lands on once the payment page closes
func (c *Client) FinishURL(orderCode string) string {
	return c.finishURLBase + "?order_id=" + url.QueryEscape(orderCode)
}

// CreateCharge opens a charge. Any non-2xx answer, an empty token, or a transport
// failure (including timeout) is returned as an error.
func (c *Client) CreateCharge(ctx context.Context, charge ChargeRequest) (*ChargeResponse, error) {
	start := time.Now()
	resp, err := c.createCharge(ctx, charge)

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.GatewayRequestDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	return resp, err
}

func (c *Client) createCharge(ctx context.Context, charge ChargeRequest) (*ChargeResponse, error) {
	body, err := json.Marshal(charge)
	if err != nil {
		return nil, fmt.Errorf("failed to encode charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway request failed",
			"order_id", charge.TransactionDetails.OrderID,
			"error", err,
		)
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		gwErr := &Error{StatusCode: res.StatusCode}
		var errBody errorResponse
		if json.Unmarshal(raw, &errBody) == nil {
			gwErr.Messages = errBody.ErrorMessages
		}
		c.logger.Warn("Gateway rejected charge",
			"order_id", charge.TransactionDetails.OrderID,
			"status_code", res.StatusCode,
			"messages", gwErr.Messages,
		)
		return nil, gwErr
	}

	var out ChargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if out.Token == "" {
		return nil, errors.New("gateway response carried no token")
	}

	return &out, nil
}
