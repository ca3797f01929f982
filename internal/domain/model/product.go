package model

import (
	"github.com/shopspring/decimal"
)

// Product is a catalogue entry. Price is the live unit price; carts
// reference products by id and re-read the price on every recompute, so
// there is no stale embedded copy to reconcile.
type Product struct {
	ProductID   string          `gorm:"primaryKey;type:uuid"`
	Name        string          `gorm:"not null;type:varchar(100);unique"`
	Description string          `gorm:"not null;type:text;default:''"`
	Price       decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	Active      bool            `gorm:"not null;default:true"`
	BaseModel
}
