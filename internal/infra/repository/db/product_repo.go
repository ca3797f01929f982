package db

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductDBRepo struct {
	db *DbDao
}

func NewProductDBRepo(db *DbDao) *ProductDBRepo {
	return &ProductDBRepo{db: db}
}

func (s *ProductDBRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&model.Product{}).
			Where("name = ?", product.Name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return repository.ErrDuplicateProductName
		}
		return tx.WithContext(ctx).Create(product).Error
	})
}

func (s *ProductDBRepo) GetProductByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).First(&product, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *ProductDBRepo) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := s.db.WithContext(ctx).Order("name").Find(&products).Error
	return products, err
}

// UpdateProductPrice locks the product row, swaps the price and reports the
// previous one so the caller can decide whether propagation is needed.
func (s *ProductDBRepo) UpdateProductPrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	var oldPrice decimal.Decimal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.WithContext(ctx).Set("gorm:for_update", true).
			First(&product, "product_id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrProductNotFound
			}
			return err
		}

		oldPrice = product.Price
		return tx.WithContext(ctx).Model(&model.Product{}).
			Where("product_id = ?", productID).
			Update("price", newPrice).Error
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return oldPrice, nil
}

func (s *ProductDBRepo) SetProductActive(ctx context.Context, productID string, active bool) error {
	res := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("product_id = ?", productID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrProductNotFound
	}
	return nil
}

// HardDeleteProduct removes the product row for good. Refused while any
// cart item still references the product.
func (s *ProductDBRepo) HardDeleteProduct(ctx context.Context, productID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&model.CartItem{}).
			Where("product_id = ?", productID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return repository.ErrProductInUse
		}

		res := tx.WithContext(ctx).Unscoped().
			Where("product_id = ?", productID).
			Delete(&model.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrProductNotFound
		}
		return nil
	})
}
