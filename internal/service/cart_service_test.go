package service

import (
	"context"
	"testing"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateActiveCartIsStable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	require.True(t, first.Active)
	require.True(t, first.Total.IsZero())
	require.Equal(t, 1, first.Version)

	second, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, first.CartID, second.CartID)

	other, err := f.carts.GetOrCreateActiveCart(ctx, "cust-2")
	require.NoError(t, err)
	require.NotEqual(t, first.CartID, other.CartID)
}

func TestGetCartByIDAndByCustomerAgree(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)

	byID, err := f.carts.GetCart(ctx, cart.CartID)
	require.NoError(t, err)
	require.Equal(t, cart.CartID, byID.CartID)
	require.Equal(t, "cust-1", byID.CustomerID)

	_, err = f.carts.GetCart(ctx, uuid.NewString())
	require.ErrorIs(t, err, repository.ErrCartNotFound)
}

func TestAddItemComputesSubtotals(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)

	got, err := f.carts.AddItem(ctx, cart.CartID, p.ProductID, 3)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, 3, got.Items[0].Quantity)
	require.True(t, got.Items[0].Subtotal.Equal(dec("30.00")))
	require.True(t, got.Total.Equal(dec("30.00")))
	requireTotalInvariant(t, got)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, cart.CartID, p.ProductID, 2)
	require.NoError(t, err)
	got, err := f.carts.AddItem(ctx, cart.CartID, p.ProductID, 3)
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	require.Equal(t, 5, got.Items[0].Quantity)
	require.True(t, got.Total.Equal(dec("50.00")))
}

func TestAddItemValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)

	for _, qty := range []int{0, -1} {
		_, err = f.carts.AddItem(ctx, cart.CartID, p.ProductID, qty)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	}

	// no mutation happened
	got, err := f.carts.GetCart(ctx, cart.CartID)
	require.NoError(t, err)
	require.Empty(t, got.Items)
	require.Equal(t, 1, got.Version)

	_, err = f.carts.AddItem(ctx, cart.CartID, uuid.NewString(), 1)
	require.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestAddItemInactiveProduct(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeactivateProduct(ctx, p.ProductID))

	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, cart.CartID, p.ProductID, 1)
	require.ErrorIs(t, err, ErrProductInactive)

	got, err := f.carts.GetCart(ctx, cart.CartID)
	require.NoError(t, err)
	require.Empty(t, got.Items)
}

func TestAddItemKeepsInsertionOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p1, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	p2, err := f.catalog.CreateProduct(ctx, "gadget", "", dec("20.00"))
	require.NoError(t, err)

	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.CartID, p1.ProductID, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.CartID, p2.ProductID, 1)
	require.NoError(t, err)

	got, err := f.carts.GetCart(ctx, cart.CartID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	require.Equal(t, p1.ProductID, got.Items[0].ProductID)
	require.Equal(t, p2.ProductID, got.Items[1].ProductID)
}

func TestRemoveItem(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p1, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	p2, err := f.catalog.CreateProduct(ctx, "gadget", "", dec("20.00"))
	require.NoError(t, err)

	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.CartID, p1.ProductID, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.CartID, p2.ProductID, 2)
	require.NoError(t, err)

	got, err := f.carts.RemoveItem(ctx, cart.CartID, p1.ProductID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, p2.ProductID, got.Items[0].ProductID)
	require.True(t, got.Total.Equal(dec("40.00")))

	_, err = f.carts.RemoveItem(ctx, cart.CartID, p1.ProductID)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestSetQuantity(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.CartID, p.ProductID, 1)
	require.NoError(t, err)

	got, err := f.carts.SetQuantity(ctx, cart.CartID, p.ProductID, 7)
	require.NoError(t, err)
	require.Equal(t, 7, got.Items[0].Quantity)
	require.True(t, got.Total.Equal(dec("70.00")))

	_, err = f.carts.SetQuantity(ctx, cart.CartID, p.ProductID, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.carts.SetQuantity(ctx, cart.CartID, uuid.NewString(), 2)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestClearCartStaysRetrievable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.CartID, p.ProductID, 4)
	require.NoError(t, err)

	require.NoError(t, f.carts.Clear(ctx, cart.CartID))

	got, err := f.carts.GetCart(ctx, cart.CartID)
	require.NoError(t, err)
	require.Empty(t, got.Items)
	require.True(t, got.Total.IsZero())
	require.True(t, got.Active)

	// still the customer's active cart
	same, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, cart.CartID, same.CartID)
}

func TestMutationClearsPendingNotice(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)
	cart, err := f.carts.GetOrCreateActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, cart.CartID, p.ProductID, 1)
	require.NoError(t, err)

	_, err = f.catalog.UpdatePrice(ctx, p.ProductID, dec("12.00"))
	require.NoError(t, err)

	got, err := f.carts.GetCart(ctx, cart.CartID)
	require.NoError(t, err)
	require.Equal(t, model.PriceUpdatedNotice, got.UpdateNotice)

	// reading does not clear the notice
	got, err = f.carts.GetCart(ctx, cart.CartID)
	require.NoError(t, err)
	require.Equal(t, model.PriceUpdatedNotice, got.UpdateNotice)

	// acting on the cart does
	got, err = f.carts.SetQuantity(ctx, cart.CartID, p.ProductID, 2)
	require.NoError(t, err)
	require.Empty(t, got.UpdateNotice)
}

func TestMutateInactiveCart(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, "widget", "", dec("10.00"))
	require.NoError(t, err)

	inactive := &model.Cart{
		CartID:     uuid.NewString(),
		CustomerID: "cust-1",
		Active:     false,
		Version:    1,
	}
	require.NoError(t, f.store.CreateCart(ctx, inactive))

	_, err = f.carts.AddItem(ctx, inactive.CartID, p.ProductID, 1)
	require.ErrorIs(t, err, ErrCartNotActive)
}
