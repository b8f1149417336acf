package payment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownItemKind is returned for an item kind outside the supported set
var ErrUnknownItemKind = errors.New("unknown item kind")

// ItemKind tags which purchasable entity an ItemRef points to
type ItemKind string

const (
	ItemCourseEnrollment ItemKind = "course_enrollment"
	ItemDigitalProduct   ItemKind = "digital_product"
	ItemBootcampSeat     ItemKind = "bootcamp_seat"
)

// ItemRef is a tagged reference to the thing being paid for. The zero value is invalid.
type ItemRef struct {
	Kind ItemKind  `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// CourseEnrollment references an enrollment into the course with the given id
func CourseEnrollment(courseID uuid.UUID) ItemRef {
	return ItemRef{Kind: ItemCourseEnrollment, ID: courseID}
}

// DigitalProduct references a downloadable product
func DigitalProduct(productID uuid.UUID) ItemRef {
	return ItemRef{Kind: ItemDigitalProduct, ID: productID}
}

// BootcampSeat references a seat in a bootcamp batch
func BootcampSeat(batchID uuid.UUID) ItemRef {
	return ItemRef{Kind: ItemBootcampSeat, ID: batchID}
}

// ParseItemKind validates a wire or stored item kind
func ParseItemKind(s string) (ItemKind, error) {
	switch ItemKind(s) {
	case ItemCourseEnrollment, ItemDigitalProduct, ItemBootcampSeat:
		return ItemKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownItemKind, s)
	}
}

// NewItemRef builds an ItemRef from its wire form
func NewItemRef(kind string, id uuid.UUID) (ItemRef, error) {
	k, err := ParseItemKind(kind)
	if err != nil {
		return ItemRef{}, err
	}
	ref := ItemRef{Kind: k, ID: id}
	if err := ref.Validate(); err != nil {
		return ItemRef{}, err
	}
	return ref, nil
}

// Validate checks that the reference has a known kind and a non-nil id
func (r ItemRef) Validate() error {
	if _, err := ParseItemKind(string(r.Kind)); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		return errors.New("item id cannot be empty")
	}
	return nil
}

// String renders the reference as kind:id, which is also the gateway item id
func (r ItemRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}
