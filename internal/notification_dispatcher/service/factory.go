package service

import (
	"log/slog"

	"github.com/course-commerce-payments/internal/config"
)

// CreateDeliveryService builds the delivery service, bounded by a worker pool when one can be created
func CreateDeliveryService(
	guard DeliveryGuard,
	sender EmailSender,
	logger *slog.Logger,
	cfg *config.Config,
) DeliveryService {
	baseService := NewDeliveryService(guard, sender, logger.With("component", "delivery"))

	workerPoolService, err := NewWorkerPoolDeliveryService(
		baseService,
		WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool delivery service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool delivery service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
