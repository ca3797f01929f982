package service

import (
	"context"
	"errors"
	"sync"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/notifier"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/RoyceAzure/lab/cartengine/internal/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultConflictRetries bounds the automatic retries on an optimistic
	// version conflict before the error surfaces to the caller.
	defaultConflictRetries = 3
	defaultFanOutWorkers   = 4
)

type IPricingEngine interface {
	RecomputeCart(ctx context.Context, cartID string) (*model.Cart, error)
	PropagatePriceChange(ctx context.Context, productID string, oldPrice, newPrice decimal.Decimal) error
	RecomputeCarts(ctx context.Context, cartIDs []string, markNotice bool) error
}

// PricingEngine maintains the consistency invariant between product prices
// and cart totals: after every successful operation a cart's total equals
// the sum of its line item subtotals, each computed from the product's
// current price.
//
// Correctness across processes rests on the cart Version check in
// SaveCart; the keyed mutex only serializes recomputes per cart inside
// this process so concurrent mutations don't burn their retry budget on
// each other.
type PricingEngine struct {
	store        repository.UnifiedStore
	cartNotifier notifier.CartNotifier

	cartLocks       *util.KeyedMutex
	conflictRetries int
	fanOutWorkers   int
}

var _ IPricingEngine = (*PricingEngine)(nil)

func NewPricingEngine(store repository.UnifiedStore, cartNotifier notifier.CartNotifier) *PricingEngine {
	if !util.HasImplementation(store) {
		panic("pricing engine dependency store is nil")
	}
	if !util.HasImplementation(cartNotifier) {
		panic("pricing engine dependency cartNotifier is nil")
	}
	return &PricingEngine{
		store:           store,
		cartNotifier:    cartNotifier,
		cartLocks:       util.NewKeyedMutex(),
		conflictRetries: defaultConflictRetries,
		fanOutWorkers:   defaultFanOutWorkers,
	}
}

// RecomputeCart recomputes the cart from current product prices inside one
// transaction. Pure function of current state, safe to call repeatedly.
func (e *PricingEngine) RecomputeCart(ctx context.Context, cartID string) (*model.Cart, error) {
	e.cartLocks.Lock(cartID)
	defer e.cartLocks.Unlock(cartID)

	var out *model.Cart
	err := retryConflicts(ctx, e.conflictRetries, func() error {
		return e.store.Transaction(ctx, func(tx repository.UnifiedStore) error {
			cart, err := tx.GetCartByID(ctx, cartID)
			if err != nil {
				return err
			}
			if err := e.recomputeCartTx(ctx, tx, cart, false); err != nil {
				return err
			}
			out = cart
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PropagatePriceChange brings every active cart referencing the product in
// line with its current price and notifies the owning customers. Each cart
// is an independent retryable unit; a subset failing yields a
// *PartialFailureError and the whole batch can safely be re-run.
//
// CatalogService.UpdatePrice does not use this path: there the propagation
// runs inside the price update transaction. This entry point exists for
// re-driving a batch afterwards (partial failure recovery, cache rebuild).
func (e *PricingEngine) PropagatePriceChange(ctx context.Context, productID string, oldPrice, newPrice decimal.Decimal) error {
	if oldPrice.Equal(newPrice) {
		return nil
	}

	cartIDs, err := e.store.FindActiveCartIDsByProduct(ctx, productID)
	if err != nil {
		return err
	}
	if len(cartIDs) == 0 {
		return nil
	}

	err = e.RecomputeCarts(ctx, cartIDs, true)
	var partial *PartialFailureError
	if err != nil && !errors.As(err, &partial) {
		return err
	}

	for _, cartID := range cartIDs {
		if partial != nil {
			if _, failed := partial.Failed[cartID]; failed {
				continue
			}
		}
		e.notifyCart(ctx, cartID)
	}
	return err
}

// RecomputeCarts fans the recompute out over the carts, each in its own
// transaction with its own bounded conflict retries. Cancelling ctx stops
// dispatching; carts already recomputed stay recomputed.
func (e *PricingEngine) RecomputeCarts(ctx context.Context, cartIDs []string, markNotice bool) error {
	var (
		mu     sync.Mutex
		failed = make(map[string]error)
	)

	g := new(errgroup.Group)
	g.SetLimit(e.fanOutWorkers)
	for _, cartID := range cartIDs {
		cartID := cartID
		g.Go(func() error {
			err := e.recomputeOne(ctx, cartID, markNotice)
			if err == nil || errors.Is(err, repository.ErrCartNotFound) {
				// a cart removed mid-batch is not stale, nothing to redo
				return nil
			}
			mu.Lock()
			failed[cartID] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return &PartialFailureError{Failed: failed}
	}
	return nil
}

func (e *PricingEngine) recomputeOne(ctx context.Context, cartID string, markNotice bool) error {
	e.cartLocks.Lock(cartID)
	defer e.cartLocks.Unlock(cartID)

	return retryConflicts(ctx, e.conflictRetries, func() error {
		return e.store.Transaction(ctx, func(tx repository.UnifiedStore) error {
			cart, err := tx.GetCartByID(ctx, cartID)
			if err != nil {
				return err
			}
			return e.recomputeCartTx(ctx, tx, cart, markNotice)
		})
	})
}

// propagatePriceChangeTx is the in-transaction propagation used by
// CatalogService.UpdatePrice: the price write and every dependent cart
// recompute commit or roll back together. Returns the affected cart ids
// for post-commit notification.
func (e *PricingEngine) propagatePriceChangeTx(ctx context.Context, tx repository.UnifiedStore, productID string) ([]string, error) {
	cartIDs, err := tx.FindActiveCartIDsByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	for _, cartID := range cartIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cart, err := tx.GetCartByID(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if err := e.recomputeCartTx(ctx, tx, cart, true); err != nil {
			return nil, err
		}
	}
	return cartIDs, nil
}

// recomputeCartTx recomputes every line item subtotal from the product's
// current price and sums the total exactly once per cart, then writes cart
// and items as one versioned save. Products are resolved once per distinct
// id even when a cart holds several items for the same product.
func (e *PricingEngine) recomputeCartTx(ctx context.Context, tx repository.UnifiedStore, cart *model.Cart, markNotice bool) error {
	prices := make(map[string]decimal.Decimal, len(cart.Items))
	total := decimal.Zero
	for i := range cart.Items {
		item := &cart.Items[i]
		price, ok := prices[item.ProductID]
		if !ok {
			product, err := tx.GetProductByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			price = product.Price
			prices[item.ProductID] = price
		}
		item.Subtotal = price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)
	}
	cart.Total = total
	if markNotice {
		cart.UpdateNotice = model.PriceUpdatedNotice
	}
	return tx.SaveCart(ctx, cart)
}

func (e *PricingEngine) notifyCart(ctx context.Context, cartID string) {
	if err := e.cartNotifier.Notify(ctx, cartID, model.PriceUpdatedNotice); err != nil {
		log.Error().Err(err).Str("cart_id", cartID).Msg("failed to deliver cart update notice")
	}
}

func (e *PricingEngine) notifyCarts(ctx context.Context, cartIDs []string) {
	for _, cartID := range cartIDs {
		e.notifyCart(ctx, cartID)
	}
}

// retryConflicts re-runs op on optimistic version conflicts, up to
// attempts times. Any other error, and the conflict once the budget is
// spent, surface to the caller.
func retryConflicts(ctx context.Context, attempts int, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = op()
		if err == nil || !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return err
}
