package model

import (
	"github.com/shopspring/decimal"
)

// PriceUpdatedNotice is the human readable notice put on a cart when a
// referenced product's price changed while the cart was active.
const PriceUpdatedNotice = "price updated"

// Cart aggregates a customer's line items. Total is maintained
// transactionally: after every successful mutation it equals the sum of
// the items' subtotals. Version is the optimistic concurrency token; every
// versioned save checks it and bumps it, so concurrent recomputes cannot
// overwrite each other with stale state.
type Cart struct {
	CartID       string          `gorm:"primaryKey;type:uuid"`
	CustomerID   string          `gorm:"not null;type:uuid;index:idx_carts_active_customer,unique,where:active"`
	Active       bool            `gorm:"not null;default:true"`
	Items        []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	Total        decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	UpdateNotice string          `gorm:"not null;type:varchar(100);default:''"`
	Version      int             `gorm:"not null;default:1"`
	BaseModel
}

// CartItem is one product/quantity pairing inside a cart. Subtotal is
// quantity times the product's unit price as of the last recompute.
// Position preserves insertion order across item replacement.
type CartItem struct {
	CartID    string          `gorm:"primaryKey;type:uuid"`
	ProductID string          `gorm:"primaryKey;type:uuid"`
	Quantity  int             `gorm:"not null"`
	Subtotal  decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	Position  int             `gorm:"not null;default:0"`
	BaseModel
}

// ItemFor returns the line item referencing productID, or nil.
func (c *Cart) ItemFor(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// NextPosition returns the position for a newly appended line item.
// Positions start at 1.
func (c *Cart) NextPosition() int {
	next := 1
	for i := range c.Items {
		if c.Items[i].Position >= next {
			next = c.Items[i].Position + 1
		}
	}
	return next
}
