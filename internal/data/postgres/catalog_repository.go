package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-commerce-payments/internal/domain/catalog"
	"github.com/course-commerce-payments/internal/domain/payment"
	"github.com/course-commerce-payments/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository implements the catalog.Repository interface for PostgreSQL
type CatalogRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCatalogRepository creates a new PostgreSQL catalog repository
func NewCatalogRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.Repository {
	return &CatalogRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetOffering returns the active offering for item, or catalog.ErrOfferingNotFound
func (r *CatalogRepository) GetOffering(ctx context.Context, item payment.ItemRef) (*catalog.Offering, error) {
	query := `
		SELECT name, price, active
		FROM offerings
		WHERE item_kind = $1 AND item_id = $2
	`

	offering := catalog.Offering{Item: item}
	err := r.querier.QueryRow(ctx, query, string(item.Kind), item.ID).Scan(
		&offering.Name,
		&offering.Price,
		&offering.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrOfferingNotFound{Item: item}
		}
		r.logger.Error("Failed to get offering", "item", item.String(), "error", err)
		return nil, fmt.Errorf("failed to get offering: %w", err)
	}

	if !offering.Active {
		return nil, catalog.ErrOfferingNotFound{Item: item}
	}

	return &offering, nil
}
