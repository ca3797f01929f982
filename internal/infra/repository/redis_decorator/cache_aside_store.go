// Package redis_decorator adds a cache-aside layer for product reads on
// top of a repository.UnifiedStore. Cache failures degrade to plain store
// access and are only logged; the write path never fails on the cache.
package redis_decorator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/RoyceAzure/lab/rj_redis/pkg/cache"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const DefaultProductTTL = 5 * time.Minute

type CacheAsideStore struct {
	repository.UnifiedStore
	cache cache.Cache
	ttl   time.Duration
}

var _ repository.UnifiedStore = (*CacheAsideStore)(nil)

func NewCacheAsideStore(store repository.UnifiedStore, productCache cache.Cache, ttl time.Duration) *CacheAsideStore {
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	return &CacheAsideStore{UnifiedStore: store, cache: productCache, ttl: ttl}
}

func productKey(productID string) string {
	return "product:" + productID
}

func (s *CacheAsideStore) GetProductByID(ctx context.Context, productID string) (*model.Product, error) {
	if raw, err := s.cache.Get(ctx, productKey(productID)); err == nil {
		if str, ok := raw.(string); ok {
			var product model.Product
			if err := json.Unmarshal([]byte(str), &product); err == nil {
				return &product, nil
			}
		}
	}

	product, err := s.UnifiedStore.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.prime(ctx, product)
	return product, nil
}

func (s *CacheAsideStore) CreateProduct(ctx context.Context, product *model.Product) error {
	if err := s.UnifiedStore.CreateProduct(ctx, product); err != nil {
		return err
	}
	s.prime(ctx, product)
	return nil
}

func (s *CacheAsideStore) UpdateProductPrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	oldPrice, err := s.UnifiedStore.UpdateProductPrice(ctx, productID, newPrice)
	if err != nil {
		return decimal.Decimal{}, err
	}
	s.invalidate(ctx, productID)
	return oldPrice, nil
}

func (s *CacheAsideStore) SetProductActive(ctx context.Context, productID string, active bool) error {
	if err := s.UnifiedStore.SetProductActive(ctx, productID, active); err != nil {
		return err
	}
	s.invalidate(ctx, productID)
	return nil
}

func (s *CacheAsideStore) HardDeleteProduct(ctx context.Context, productID string) error {
	if err := s.UnifiedStore.HardDeleteProduct(ctx, productID); err != nil {
		return err
	}
	s.invalidate(ctx, productID)
	return nil
}

// Transaction wraps the inner transaction store so product writes made
// inside the unit still invalidate the cache. Invalidating for a unit that
// later rolls back only costs a cache miss.
func (s *CacheAsideStore) Transaction(ctx context.Context, fn func(tx repository.UnifiedStore) error) error {
	return s.UnifiedStore.Transaction(ctx, func(tx repository.UnifiedStore) error {
		return fn(&invalidatingTx{UnifiedStore: tx, outer: s})
	})
}

func (s *CacheAsideStore) prime(ctx context.Context, product *model.Product) {
	payload, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, productKey(product.ProductID), string(payload), s.ttl); err != nil {
		log.Error().Err(err).Str("product_id", product.ProductID).Msg("failed to prime product cache")
	}
}

func (s *CacheAsideStore) invalidate(ctx context.Context, productID string) {
	if err := s.cache.Delete(ctx, productKey(productID)); err != nil {
		log.Error().Err(err).Str("product_id", productID).Msg("failed to invalidate product cache")
	}
}

// invalidatingTx forwards everything to the transaction-scoped store and
// mirrors product write invalidation. Reads inside a transaction bypass
// the cache on purpose: they must see the transaction's own writes.
type invalidatingTx struct {
	repository.UnifiedStore
	outer *CacheAsideStore
}

func (t *invalidatingTx) Transaction(ctx context.Context, fn func(tx repository.UnifiedStore) error) error {
	return t.UnifiedStore.Transaction(ctx, func(tx repository.UnifiedStore) error {
		return fn(&invalidatingTx{UnifiedStore: tx, outer: t.outer})
	})
}

func (t *invalidatingTx) CreateProduct(ctx context.Context, product *model.Product) error {
	err := t.UnifiedStore.CreateProduct(ctx, product)
	if err == nil {
		t.outer.invalidate(ctx, product.ProductID)
	}
	return err
}

func (t *invalidatingTx) UpdateProductPrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	oldPrice, err := t.UnifiedStore.UpdateProductPrice(ctx, productID, newPrice)
	if err == nil {
		t.outer.invalidate(ctx, productID)
	}
	return oldPrice, err
}

func (t *invalidatingTx) SetProductActive(ctx context.Context, productID string, active bool) error {
	err := t.UnifiedStore.SetProductActive(ctx, productID, active)
	if err == nil {
		t.outer.invalidate(ctx, productID)
	}
	return err
}

func (t *invalidatingTx) HardDeleteProduct(ctx context.Context, productID string) error {
	err := t.UnifiedStore.HardDeleteProduct(ctx, productID)
	if err == nil {
		t.outer.invalidate(ctx, productID)
	}
	return err
}
