// Package catalog exposes the purchasable offerings and their prices.
package catalog

import (
	"context"

	"github.com/course-commerce-payments/internal/domain/payment"
)

// Offering is the priced, sellable form of an item
type Offering struct {
	Item   payment.ItemRef `json:"item"`
	Name   string          `json:"name"`
	Price  int64           `json:"price"` // Smallest currency unit
	Active bool            `json:"active"`
}

// Repository reads offerings
type Repository interface {
	GetOffering(ctx context.Context, item payment.ItemRef) (*Offering, error)
}

// ErrOfferingNotFound indicates the item is unknown or no longer on sale
type ErrOfferingNotFound struct {
	Item payment.ItemRef
}

func (e ErrOfferingNotFound) Error() string {
	return "offering not found: " + e.Item.String()
}

func (e ErrOfferingNotFound) Is(target error) bool {
	return target == payment.ErrNotFound
}
