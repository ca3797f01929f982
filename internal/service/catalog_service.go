package service

import (
	"context"
	"strings"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/RoyceAzure/lab/cartengine/internal/pkg/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ICatalogService interface {
	CreateProduct(ctx context.Context, name, description string, price decimal.Decimal) (*model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	UpdatePrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error)
	DeactivateProduct(ctx context.Context, productID string) error
	DeleteProduct(ctx context.Context, productID string) error
}

type CatalogService struct {
	store  repository.UnifiedStore
	engine *PricingEngine
}

var _ ICatalogService = (*CatalogService)(nil)

func NewCatalogService(store repository.UnifiedStore, engine *PricingEngine) *CatalogService {
	if !util.HasImplementation(store) {
		panic("catalog service dependency store is nil")
	}
	if engine == nil {
		panic("catalog service dependency engine is nil")
	}
	return &CatalogService{store: store, engine: engine}
}

func (s *CatalogService) CreateProduct(ctx context.Context, name, description string, price decimal.Decimal) (*model.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyProductName
	}
	if price.IsNegative() {
		return nil, ErrNegativePrice
	}

	product := &model.Product{
		ProductID:   uuid.NewString(),
		Name:        name,
		Description: description,
		Price:       price,
		Active:      true,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	return s.store.GetProductByID(ctx, productID)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.store.ListProducts(ctx)
}

// UpdatePrice sets the product's price and reconciles every active cart
// referencing it in the same transaction, so no reader ever observes the
// new price with stale cart totals. Returns the previous price.
//
// A concurrent cart mutation can make one of the dependent recomputes lose
// its version check; the whole unit is then retried against current state.
func (s *CatalogService) UpdatePrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	if newPrice.IsNegative() {
		return decimal.Decimal{}, ErrNegativePrice
	}

	var oldPrice decimal.Decimal
	var affected []string
	err := retryConflicts(ctx, s.engine.conflictRetries, func() error {
		affected = nil
		return s.store.Transaction(ctx, func(tx repository.UnifiedStore) error {
			old, err := tx.UpdateProductPrice(ctx, productID, newPrice)
			if err != nil {
				return err
			}
			oldPrice = old
			if old.Equal(newPrice) {
				// nothing to reconcile, carts already reflect this price
				return nil
			}
			ids, err := s.engine.propagatePriceChangeTx(ctx, tx, productID)
			if err != nil {
				return err
			}
			affected = ids
			return nil
		})
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	s.engine.notifyCarts(ctx, affected)
	return oldPrice, nil
}

func (s *CatalogService) DeactivateProduct(ctx context.Context, productID string) error {
	return s.store.SetProductActive(ctx, productID, false)
}

// DeleteProduct removes a product for good. Refused with ErrProductInUse
// while any cart still holds a line item for it.
func (s *CatalogService) DeleteProduct(ctx context.Context, productID string) error {
	return s.store.HardDeleteProduct(ctx, productID)
}
