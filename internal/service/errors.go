package service

import (
	"errors"
	"fmt"
	"sort"
)

type CatalogServiceError error

var (
	ErrEmptyProductName CatalogServiceError = errors.New("product name must not be empty")
	ErrNegativePrice    CatalogServiceError = errors.New("price must not be negative")
)

type CartServiceError error

var (
	ErrInvalidQuantity CartServiceError = errors.New("quantity must be a positive integer")
	ErrItemNotFound    CartServiceError = errors.New("cart has no line item for product")
	ErrCartNotActive   CartServiceError = errors.New("cart is not active")
	ErrProductInactive CartServiceError = errors.New("product is not active")
)

// PartialFailureError reports a price propagation batch that left a subset
// of carts stale. Recompute is pure, so the caller retries the whole batch
// rather than resuming mid-way.
type PartialFailureError struct {
	Failed map[string]error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("price propagation failed for %d of the affected carts", len(e.Failed))
}

// CartIDs returns the ids of the carts still stale, sorted.
func (e *PartialFailureError) CartIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
