// Package redis keeps short-lived delivery markers so a redelivered notification
// event does not produce a second email.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "notification:delivered:"

// DeliveryGuard claims notification deliveries with SETNX
type DeliveryGuard struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewDeliveryGuard creates a guard whose claims expire after ttl
func NewDeliveryGuard(logger *slog.Logger, client goredis.Cmdable, ttl time.Duration) *DeliveryGuard {
	return &DeliveryGuard{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Claim reserves key for one delivery. It returns false when the key was already
// claimed by an earlier delivery.
func (g *DeliveryGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, deliveryKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		g.logger.Error("Failed to claim notification delivery", "key", key, "error", err)
		return false, fmt.Errorf("failed to claim notification delivery: %w", err)
	}
	return ok, nil
}

// Release drops a claim so a later redelivery may try again
func (g *DeliveryGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, deliveryKeyPrefix+key).Err(); err != nil {
		g.logger.Error("Failed to release notification delivery", "key", key, "error", err)
		return fmt.Errorf("failed to release notification delivery: %w", err)
	}
	return nil
}
