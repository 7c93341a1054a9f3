package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNegativePrice is returned by Product.Validate.
var ErrNegativePrice = errors.New("unit price must not be negative")

// ProductCategory is identified by its code; the import uses the code as name too.
type ProductCategory struct {
	Code      string    `gorm:"primaryKey;size:64" json:"code"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a sellable item.
type Product struct {
	Code         string           `gorm:"primaryKey;size:64" json:"code"`
	CategoryCode string           `gorm:"size:64;index;not null" json:"category_code"`
	Category     *ProductCategory `gorm:"foreignKey:CategoryCode" json:"category,omitempty"`
	Name         string           `gorm:"size:255;not null" json:"name"`
	Unit         string           `gorm:"size:50" json:"unit"`
	UnitPrice    decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Validate checks the product invariants.
func (p *Product) Validate() error {
	if p.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// LineTotal returns quantity × unit price.
func (p *Product) LineTotal(quantity int) decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
