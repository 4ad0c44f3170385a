package domain

import "storefront/pkg/errors"

// Domain-specific errors
var (
	ErrReferenceRequired = errors.NewValidation("order reference is required", nil)
	ErrEmptyCart         = errors.NewValidation("cart must contain at least one item", nil)
)

// NewOrderNotFound creates a not found error with the order reference
func NewOrderNotFound(reference string) error {
	return errors.NewNotFound("order", reference)
}

// NewInvalidLineItem creates a validation error for a malformed cart line
func NewInvalidLineItem(productID string) error {
	return errors.NewValidation("invalid line item", map[string]interface{}{
		"product_id": productID,
	})
}

// NewPriceMismatch creates a validation error for a client price outside the
// accepted tolerance of the catalog price
func NewPriceMismatch(productID string, clientPrice, catalogPrice int64) error {
	return errors.NewValidation("cart price does not match catalog price", map[string]interface{}{
		"product_id":    productID,
		"client_price":  clientPrice,
		"catalog_price": catalogPrice,
	})
}

// NewInvalidTransitionError creates the rejection for an off-graph status change
func NewInvalidTransitionError(from, to OrderStatus) error {
	return errors.NewInvalidTransition(string(from), string(to))
}
