package db

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Needs a local postgres. Set CARTENGINE_TEST_DB=1 to run, for example:
//
//	docker run -d -p 5432:5432 -e POSTGRES_USER=royce -e POSTGRES_PASSWORD=password -e POSTGRES_DB=lab_cartengine postgres:16
type UnifiedDBStoreTestSuite struct {
	suite.Suite
	*require.Assertions

	ctx   context.Context
	store *UnifiedDBStore

	createdProductIDs []string
	createdCartIDs    []string
}

func TestUnifiedDBStore(t *testing.T) {
	if os.Getenv("CARTENGINE_TEST_DB") == "" {
		t.Skip("CARTENGINE_TEST_DB not set")
	}
	suite.Run(t, new(UnifiedDBStoreTestSuite))
}

func (s *UnifiedDBStoreTestSuite) SetupSuite() {
	s.Assertions = require.New(s.T())
	s.ctx = context.Background()

	conn, err := GetDbConn("lab_cartengine", "localhost", "5432", "royce", "password")
	s.Require().NoError(err)

	s.store = NewUnifiedDBStore(conn)
	s.Require().NoError(s.store.InitMigrate())
}

func (s *UnifiedDBStoreTestSuite) TearDownTest() {
	db := s.store.GetDB()
	for _, cartID := range s.createdCartIDs {
		db.Unscoped().Where("cart_id = ?", cartID).Delete(&model.CartItem{})
		db.Unscoped().Where("cart_id = ?", cartID).Delete(&model.Cart{})
	}
	for _, productID := range s.createdProductIDs {
		db.Unscoped().Where("product_id = ?", productID).Delete(&model.Product{})
	}
	s.createdProductIDs = nil
	s.createdCartIDs = nil
}

func (s *UnifiedDBStoreTestSuite) newProduct(price string) *model.Product {
	p := &model.Product{
		ProductID: uuid.NewString(),
		Name:      fmt.Sprintf("test-product-%s", uuid.NewString()[:8]),
		Price:     decimal.RequireFromString(price),
		Active:    true,
	}
	s.NoError(s.store.CreateProduct(s.ctx, p))
	s.createdProductIDs = append(s.createdProductIDs, p.ProductID)
	return p
}

func (s *UnifiedDBStoreTestSuite) newCart(items ...model.CartItem) *model.Cart {
	cart := &model.Cart{
		CartID:     uuid.NewString(),
		CustomerID: uuid.NewString(),
		Active:     true,
		Total:      decimal.Zero,
		Version:    1,
	}
	for i := range items {
		items[i].CartID = cart.CartID
		items[i].Position = i + 1
	}
	cart.Items = items
	s.NoError(s.store.CreateCart(s.ctx, cart))
	s.createdCartIDs = append(s.createdCartIDs, cart.CartID)
	return cart
}

func (s *UnifiedDBStoreTestSuite) TestProductRoundTrip() {
	p := s.newProduct("19.99")

	got, err := s.store.GetProductByID(s.ctx, p.ProductID)
	s.NoError(err)
	s.Equal(p.Name, got.Name)
	s.True(got.Price.Equal(decimal.RequireFromString("19.99")))
	s.True(got.Active)
}

func (s *UnifiedDBStoreTestSuite) TestDuplicateProductName() {
	p := s.newProduct("10.00")

	dup := &model.Product{
		ProductID: uuid.NewString(),
		Name:      p.Name,
		Price:     decimal.RequireFromString("12.00"),
		Active:    true,
	}
	err := s.store.CreateProduct(s.ctx, dup)
	s.ErrorIs(err, repository.ErrDuplicateProductName)
}

func (s *UnifiedDBStoreTestSuite) TestUpdateProductPriceReturnsOld() {
	p := s.newProduct("10.00")

	old, err := s.store.UpdateProductPrice(s.ctx, p.ProductID, decimal.RequireFromString("15.00"))
	s.NoError(err)
	s.True(old.Equal(decimal.RequireFromString("10.00")))

	got, err := s.store.GetProductByID(s.ctx, p.ProductID)
	s.NoError(err)
	s.True(got.Price.Equal(decimal.RequireFromString("15.00")))
}

func (s *UnifiedDBStoreTestSuite) TestCartRoundTripKeepsItemOrder() {
	p1 := s.newProduct("10.00")
	p2 := s.newProduct("20.00")
	cart := s.newCart(
		model.CartItem{ProductID: p1.ProductID, Quantity: 1, Subtotal: decimal.RequireFromString("10.00")},
		model.CartItem{ProductID: p2.ProductID, Quantity: 2, Subtotal: decimal.RequireFromString("40.00")},
	)

	got, err := s.store.GetCartByID(s.ctx, cart.CartID)
	s.NoError(err)
	s.Len(got.Items, 2)
	s.Equal(p1.ProductID, got.Items[0].ProductID)
	s.Equal(p2.ProductID, got.Items[1].ProductID)
}

func (s *UnifiedDBStoreTestSuite) TestSaveCartVersionFence() {
	cart := s.newCart()

	first, err := s.store.GetCartByID(s.ctx, cart.CartID)
	s.NoError(err)
	second, err := s.store.GetCartByID(s.ctx, cart.CartID)
	s.NoError(err)

	first.Total = decimal.RequireFromString("20.00")
	s.NoError(s.store.SaveCart(s.ctx, first))
	s.Equal(2, first.Version)

	second.Total = decimal.RequireFromString("30.00")
	err = s.store.SaveCart(s.ctx, second)
	s.ErrorIs(err, repository.ErrConflict)

	var conflict *repository.ConflictError
	s.ErrorAs(err, &conflict)
	s.Equal(cart.CartID, conflict.CartID)
}

func (s *UnifiedDBStoreTestSuite) TestSecondActiveCartRejected() {
	cart := s.newCart()

	dup := &model.Cart{
		CartID:     uuid.NewString(),
		CustomerID: cart.CustomerID,
		Active:     true,
		Total:      decimal.Zero,
		Version:    1,
	}
	err := s.store.CreateCart(s.ctx, dup)
	s.ErrorIs(err, repository.ErrActiveCartExists)
}

func (s *UnifiedDBStoreTestSuite) TestRemoveAllItems() {
	p := s.newProduct("10.00")
	cart := s.newCart(model.CartItem{ProductID: p.ProductID, Quantity: 2, Subtotal: decimal.RequireFromString("20.00")})

	s.NoError(s.store.RemoveAllItems(s.ctx, cart.CartID))

	got, err := s.store.GetCartByID(s.ctx, cart.CartID)
	s.NoError(err)
	s.Empty(got.Items)
	s.True(got.Total.IsZero())
}

func (s *UnifiedDBStoreTestSuite) TestHardDeleteProductInUse() {
	p := s.newProduct("10.00")
	s.newCart(model.CartItem{ProductID: p.ProductID, Quantity: 1, Subtotal: decimal.RequireFromString("10.00")})

	err := s.store.HardDeleteProduct(s.ctx, p.ProductID)
	s.ErrorIs(err, repository.ErrProductInUse)
}

func (s *UnifiedDBStoreTestSuite) TestFindActiveCartIDsByProduct() {
	p := s.newProduct("10.00")
	withItem := s.newCart(model.CartItem{ProductID: p.ProductID, Quantity: 1, Subtotal: decimal.RequireFromString("10.00")})
	s.newCart()

	ids, err := s.store.FindActiveCartIDsByProduct(s.ctx, p.ProductID)
	s.NoError(err)
	s.Equal([]string{withItem.CartID}, ids)
}

func (s *UnifiedDBStoreTestSuite) TestTransactionRollback() {
	p := s.newProduct("10.00")

	err := s.store.Transaction(s.ctx, func(tx repository.UnifiedStore) error {
		if _, err := tx.UpdateProductPrice(s.ctx, p.ProductID, decimal.RequireFromString("99.00")); err != nil {
			return err
		}
		return fmt.Errorf("force rollback")
	})
	s.Error(err)

	got, err := s.store.GetProductByID(s.ctx, p.ProductID)
	s.NoError(err)
	s.True(got.Price.Equal(decimal.RequireFromString("10.00")))
}
