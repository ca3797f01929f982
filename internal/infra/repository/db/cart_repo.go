package db

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartDBRepo struct {
	db *DbDao
}

func NewCartDBRepo(db *DbDao) *CartDBRepo {
	return &CartDBRepo{db: db}
}

func (s *CartDBRepo) CreateCart(ctx context.Context, cart *model.Cart) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if cart.Active {
			var count int64
			if err := tx.WithContext(ctx).Model(&model.Cart{}).
				Where("customer_id = ? AND active = ?", cart.CustomerID, true).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return repository.ErrActiveCartExists
			}
		}
		return tx.WithContext(ctx).Create(cart).Error
	})
}

func (s *CartDBRepo) GetCartByID(ctx context.Context, cartID string) (*model.Cart, error) {
	var cart model.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&cart, "cart_id = ?", cartID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

func (s *CartDBRepo) GetActiveCartByCustomer(ctx context.Context, customerID string) (*model.Cart, error) {
	var cart model.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&cart, "customer_id = ? AND active = ?", customerID, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

// SaveCart writes the cart row and replaces its item collection in one
// transaction. The update is fenced on the cart's current Version; a stale
// version writes nothing and fails with *repository.ConflictError.
func (s *CartDBRepo) SaveCart(ctx context.Context, cart *model.Cart) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&model.Cart{}).
			Where("cart_id = ? AND version = ?", cart.CartID, cart.Version).
			Updates(map[string]interface{}{
				"active":        cart.Active,
				"total":         cart.Total,
				"update_notice": cart.UpdateNotice,
				"version":       cart.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.WithContext(ctx).Model(&model.Cart{}).
				Where("cart_id = ?", cart.CartID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return repository.ErrCartNotFound
			}
			return &repository.ConflictError{CartID: cart.CartID, ExpectedVersion: cart.Version}
		}

		if err := tx.WithContext(ctx).Unscoped().
			Where("cart_id = ?", cart.CartID).
			Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		for i := range cart.Items {
			cart.Items[i].CartID = cart.CartID
		}
		if len(cart.Items) > 0 {
			if err := tx.WithContext(ctx).Create(&cart.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	cart.Version++
	return nil
}

func (s *CartDBRepo) RemoveAllItems(ctx context.Context, cartID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&model.Cart{}).
			Where("cart_id = ?", cartID).
			Updates(map[string]interface{}{
				"total":         decimal.Zero,
				"update_notice": "",
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrCartNotFound
		}

		return tx.WithContext(ctx).Unscoped().
			Where("cart_id = ?", cartID).
			Delete(&model.CartItem{}).Error
	})
}

func (s *CartDBRepo) FindActiveCartIDsByProduct(ctx context.Context, productID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.CartItem{}).
		Distinct().
		Joins("JOIN carts ON carts.cart_id = cart_items.cart_id").
		Where("cart_items.product_id = ? AND carts.active = ? AND carts.deleted_at IS NULL", productID, true).
		Order("cart_items.cart_id").
		Pluck("cart_items.cart_id", &ids).Error
	return ids, err
}
