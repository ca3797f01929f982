// Package repository defines the storage contract the pricing engine and
// services are written against. Two implementations exist: the gorm/postgres
// store under db and the in-memory store under memstore, which lets the
// engine be tested without a live database.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/shopspring/decimal"
)

type StoreError error

var (
	ErrProductNotFound      StoreError = errors.New("product not found")
	ErrDuplicateProductName StoreError = errors.New("product name already exists")
	ErrProductInUse         StoreError = errors.New("product is referenced by cart items")
	ErrCartNotFound         StoreError = errors.New("cart not found")
	ErrActiveCartExists     StoreError = errors.New("customer already has an active cart")
	// ErrConflict is the sentinel ConflictError unwraps to, so callers can
	// match with errors.Is without caring about the carried context.
	ErrConflict StoreError = errors.New("concurrency conflict")
)

// ConflictError reports an optimistic version check failure on a cart.
// The caller decides between retrying against the now-current state and
// surfacing the failure.
type ConflictError struct {
	CartID          string
	ExpectedVersion int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict on cart %s: expected version %d", e.CartID, e.ExpectedVersion)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ProductStore is the catalog side of the storage contract.
type ProductStore interface {
	// CreateProduct inserts a new product. Fails with
	// ErrDuplicateProductName when the name is already taken.
	CreateProduct(ctx context.Context, product *model.Product) error

	// GetProductByID fails with ErrProductNotFound for unknown ids.
	GetProductByID(ctx context.Context, productID string) (*model.Product, error)

	// ListProducts returns every non-deleted product.
	ListProducts(ctx context.Context) ([]model.Product, error)

	// UpdateProductPrice sets the product's price and returns the previous
	// one. Fails with ErrProductNotFound for unknown ids.
	UpdateProductPrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error)

	// SetProductActive toggles the active flag.
	SetProductActive(ctx context.Context, productID string, active bool) error

	// HardDeleteProduct removes the product row. Fails with ErrProductInUse
	// while any cart item still references it: line items must never
	// dangle.
	HardDeleteProduct(ctx context.Context, productID string) error
}

// CartStore is the cart side of the storage contract. Lookups by cart id
// and by owning customer are deliberately distinct operations.
type CartStore interface {
	// CreateCart inserts a new cart. Fails with ErrActiveCartExists when
	// the customer already owns an active cart.
	CreateCart(ctx context.Context, cart *model.Cart) error

	// GetCartByID loads the cart and its full item collection in insertion
	// order. Fails with ErrCartNotFound for unknown ids.
	GetCartByID(ctx context.Context, cartID string) (*model.Cart, error)

	// GetActiveCartByCustomer loads the customer's active cart. Fails with
	// ErrCartNotFound when the customer has none.
	GetActiveCartByCustomer(ctx context.Context, customerID string) (*model.Cart, error)

	// SaveCart writes the cart row and replaces its item collection as one
	// unit, guarded by the cart's Version: on success the stored and
	// in-memory Version are bumped, on a stale version it fails with a
	// *ConflictError and writes nothing.
	SaveCart(ctx context.Context, cart *model.Cart) error

	// RemoveAllItems deletes every line item of the cart, zeroes its total
	// and clears its update notice. The cart row itself survives.
	RemoveAllItems(ctx context.Context, cartID string) error

	// FindActiveCartIDsByProduct returns the id of every active cart
	// holding at least one line item for the product, each id once.
	FindActiveCartIDsByProduct(ctx context.Context, productID string) ([]string, error)
}

// UnifiedStore is the full storage contract plus transaction scoping.
type UnifiedStore interface {
	ProductStore
	CartStore

	// Transaction runs fn against a transaction-scoped store. fn returning
	// an error rolls the whole unit back.
	Transaction(ctx context.Context, fn func(tx UnifiedStore) error) error
}
