package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/RoyceAzure/lab/cartengine/internal/pkg/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ICartService interface {
	GetOrCreateActiveCart(ctx context.Context, customerID string) (*model.Cart, error)
	GetCart(ctx context.Context, cartID string) (*model.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) (*model.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID string) (*model.Cart, error)
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*model.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

type CartService struct {
	store  repository.UnifiedStore
	engine *PricingEngine
}

var _ ICartService = (*CartService)(nil)

func NewCartService(store repository.UnifiedStore, engine *PricingEngine) *CartService {
	if !util.HasImplementation(store) {
		panic("cart service dependency store is nil")
	}
	if engine == nil {
		panic("cart service dependency engine is nil")
	}
	return &CartService{store: store, engine: engine}
}

// GetOrCreateActiveCart returns the customer's active cart, creating one on
// first use. At most one active cart exists per customer; a concurrent
// create that loses the race falls back to reading the winner's cart.
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, customerID string) (*model.Cart, error) {
	cart, err := s.store.GetActiveCartByCustomer(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	cart = &model.Cart{
		CartID:     uuid.NewString(),
		CustomerID: customerID,
		Active:     true,
		Total:      decimal.Zero,
		Version:    1,
	}
	err = s.store.CreateCart(ctx, cart)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, repository.ErrActiveCartExists) {
		// lost the create race, the other caller's cart is the active one
		return s.store.GetActiveCartByCustomer(ctx, customerID)
	}
	return nil, err
}

func (s *CartService) GetCart(ctx context.Context, cartID string) (*model.Cart, error) {
	return s.store.GetCartByID(ctx, cartID)
}

// AddItem puts quantity units of the product into the cart. Adding a product
// already in the cart merges into the existing line item.
func (s *CartService) AddItem(ctx context.Context, cartID, productID string, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutateCart(ctx, cartID, func(ctx context.Context, tx repository.UnifiedStore, cart *model.Cart) error {
		product, err := tx.GetProductByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.Active {
			return ErrProductInactive
		}
		if item := cart.ItemFor(productID); item != nil {
			item.Quantity += quantity
		} else {
			cart.Items = append(cart.Items, model.CartItem{
				CartID:    cart.CartID,
				ProductID: productID,
				Quantity:  quantity,
				Position:  cart.NextPosition(),
			})
		}
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) (*model.Cart, error) {
	return s.mutateCart(ctx, cartID, func(ctx context.Context, tx repository.UnifiedStore, cart *model.Cart) error {
		kept := cart.Items[:0]
		found := false
		for _, item := range cart.Items {
			if item.ProductID == productID {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		if !found {
			return ErrItemNotFound
		}
		cart.Items = kept
		return nil
	})
}

func (s *CartService) SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutateCart(ctx, cartID, func(ctx context.Context, tx repository.UnifiedStore, cart *model.Cart) error {
		item := cart.ItemFor(productID)
		if item == nil {
			return ErrItemNotFound
		}
		item.Quantity = quantity
		return nil
	})
}

// Clear removes every item from the cart. The cart row itself survives with
// a zero total and stays retrievable.
func (s *CartService) Clear(ctx context.Context, cartID string) error {
	s.engine.cartLocks.Lock(cartID)
	defer s.engine.cartLocks.Unlock(cartID)

	return s.store.RemoveAllItems(ctx, cartID)
}

// mutateCart runs a cart mutation and the total recompute as one unit:
// load, check active, mutate items, reprice every line against the current
// catalog, persist under the version fence. Any pending price notice is
// cleared because the caller is acting on fresh state.
func (s *CartService) mutateCart(ctx context.Context, cartID string, mutate func(ctx context.Context, tx repository.UnifiedStore, cart *model.Cart) error) (*model.Cart, error) {
	s.engine.cartLocks.Lock(cartID)
	defer s.engine.cartLocks.Unlock(cartID)

	var updated *model.Cart
	err := retryConflicts(ctx, s.engine.conflictRetries, func() error {
		return s.store.Transaction(ctx, func(tx repository.UnifiedStore) error {
			cart, err := tx.GetCartByID(ctx, cartID)
			if err != nil {
				return err
			}
			if !cart.Active {
				return ErrCartNotActive
			}
			if err := mutate(ctx, tx, cart); err != nil {
				return err
			}
			cart.UpdateNotice = ""
			if err := s.engine.recomputeCartTx(ctx, tx, cart, false); err != nil {
				return err
			}
			updated = cart
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
