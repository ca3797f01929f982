// Package memstore is an in-memory repository.UnifiedStore with the same
// error and versioning semantics as the gorm store. It backs the engine and
// service tests, which must run without a live database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/cartengine/internal/domain/model"
	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"github.com/shopspring/decimal"
)

type data struct {
	products map[string]*model.Product
	carts    map[string]*model.Cart
}

func (d *data) clone() *data {
	next := &data{
		products: make(map[string]*model.Product, len(d.products)),
		carts:    make(map[string]*model.Cart, len(d.carts)),
	}
	for id, p := range d.products {
		next.products[id] = copyProduct(p)
	}
	for id, c := range d.carts {
		next.carts[id] = copyCart(c)
	}
	return next
}

func copyProduct(p *model.Product) *model.Product {
	cp := *p
	return &cp
}

func copyCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = make([]model.CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	sort.SliceStable(cp.Items, func(i, j int) bool { return cp.Items[i].Position < cp.Items[j].Position })
	return &cp
}

// Store serializes every operation behind one mutex; a Transaction holds
// the mutex for its whole body and rolls back by restoring a snapshot.
type Store struct {
	mu   sync.Mutex
	data *data
}

var _ repository.UnifiedStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: &data{
		products: make(map[string]*model.Product),
		carts:    make(map[string]*model.Cart),
	}}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.UnifiedStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txStore{data: s.data}); err != nil {
		s.data.products = snapshot.products
		s.data.carts = snapshot.carts
		return err
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.createProduct(product)
}

func (s *Store) GetProductByID(ctx context.Context, productID string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.getProductByID(productID)
}

func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.listProducts()
}

func (s *Store) UpdateProductPrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.updateProductPrice(productID, newPrice)
}

func (s *Store) SetProductActive(ctx context.Context, productID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.setProductActive(productID, active)
}

func (s *Store) HardDeleteProduct(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.hardDeleteProduct(productID)
}

func (s *Store) CreateCart(ctx context.Context, cart *model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.createCart(cart)
}

func (s *Store) GetCartByID(ctx context.Context, cartID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.getCartByID(cartID)
}

func (s *Store) GetActiveCartByCustomer(ctx context.Context, customerID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.getActiveCartByCustomer(customerID)
}

func (s *Store) SaveCart(ctx context.Context, cart *model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.saveCart(cart)
}

func (s *Store) RemoveAllItems(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.removeAllItems(cartID)
}

func (s *Store) FindActiveCartIDsByProduct(ctx context.Context, productID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.findActiveCartIDsByProduct(productID)
}

// txStore is the transaction-scoped view. The owning Transaction already
// holds the store mutex, so operations go straight at the data.
type txStore struct {
	data *data
}

var _ repository.UnifiedStore = (*txStore)(nil)

func (t *txStore) Transaction(ctx context.Context, fn func(tx repository.UnifiedStore) error) error {
	// nested transaction: savepoint semantics
	snapshot := t.data.clone()
	if err := fn(t); err != nil {
		t.data.products = snapshot.products
		t.data.carts = snapshot.carts
		return err
	}
	return nil
}

func (t *txStore) CreateProduct(ctx context.Context, product *model.Product) error {
	return t.data.createProduct(product)
}

func (t *txStore) GetProductByID(ctx context.Context, productID string) (*model.Product, error) {
	return t.data.getProductByID(productID)
}

func (t *txStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	return t.data.listProducts()
}

func (t *txStore) UpdateProductPrice(ctx context.Context, productID string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	return t.data.updateProductPrice(productID, newPrice)
}

func (t *txStore) SetProductActive(ctx context.Context, productID string, active bool) error {
	return t.data.setProductActive(productID, active)
}

func (t *txStore) HardDeleteProduct(ctx context.Context, productID string) error {
	return t.data.hardDeleteProduct(productID)
}

func (t *txStore) CreateCart(ctx context.Context, cart *model.Cart) error {
	return t.data.createCart(cart)
}

func (t *txStore) GetCartByID(ctx context.Context, cartID string) (*model.Cart, error) {
	return t.data.getCartByID(cartID)
}

func (t *txStore) GetActiveCartByCustomer(ctx context.Context, customerID string) (*model.Cart, error) {
	return t.data.getActiveCartByCustomer(customerID)
}

func (t *txStore) SaveCart(ctx context.Context, cart *model.Cart) error {
	return t.data.saveCart(cart)
}

func (t *txStore) RemoveAllItems(ctx context.Context, cartID string) error {
	return t.data.removeAllItems(cartID)
}

func (t *txStore) FindActiveCartIDsByProduct(ctx context.Context, productID string) ([]string, error) {
	return t.data.findActiveCartIDsByProduct(productID)
}

func (d *data) createProduct(product *model.Product) error {
	for _, p := range d.products {
		if p.Name == product.Name {
			return repository.ErrDuplicateProductName
		}
	}
	product.CreatedAt = time.Now()
	d.products[product.ProductID] = copyProduct(product)
	return nil
}

func (d *data) getProductByID(productID string) (*model.Product, error) {
	p, ok := d.products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (d *data) listProducts() ([]model.Product, error) {
	products := make([]model.Product, 0, len(d.products))
	for _, p := range d.products {
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (d *data) updateProductPrice(productID string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	p, ok := d.products[productID]
	if !ok {
		return decimal.Decimal{}, repository.ErrProductNotFound
	}
	oldPrice := p.Price
	p.Price = newPrice
	p.UpdatedAt = time.Now()
	return oldPrice, nil
}

func (d *data) setProductActive(productID string, active bool) error {
	p, ok := d.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Active = active
	p.UpdatedAt = time.Now()
	return nil
}

func (d *data) hardDeleteProduct(productID string) error {
	if _, ok := d.products[productID]; !ok {
		return repository.ErrProductNotFound
	}
	for _, c := range d.carts {
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				return repository.ErrProductInUse
			}
		}
	}
	delete(d.products, productID)
	return nil
}

func (d *data) createCart(cart *model.Cart) error {
	if cart.Active {
		for _, c := range d.carts {
			if c.CustomerID == cart.CustomerID && c.Active {
				return repository.ErrActiveCartExists
			}
		}
	}
	cart.CreatedAt = time.Now()
	d.carts[cart.CartID] = copyCart(cart)
	return nil
}

func (d *data) getCartByID(cartID string) (*model.Cart, error) {
	c, ok := d.carts[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (d *data) getActiveCartByCustomer(customerID string) (*model.Cart, error) {
	for _, c := range d.carts {
		if c.CustomerID == customerID && c.Active {
			return copyCart(c), nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (d *data) saveCart(cart *model.Cart) error {
	current, ok := d.carts[cart.CartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if current.Version != cart.Version {
		return &repository.ConflictError{CartID: cart.CartID, ExpectedVersion: cart.Version}
	}
	cart.Version++
	stored := copyCart(cart)
	stored.UpdatedAt = time.Now()
	d.carts[cart.CartID] = stored
	return nil
}

func (d *data) removeAllItems(cartID string) error {
	c, ok := d.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	c.Items = nil
	c.Total = decimal.Zero
	c.UpdateNotice = ""
	c.Version++
	c.UpdatedAt = time.Now()
	return nil
}

func (d *data) findActiveCartIDsByProduct(productID string) ([]string, error) {
	var ids []string
	for id, c := range d.carts {
		if !c.Active {
			continue
		}
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
