package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNonPositiveQuantity is returned by InvoiceDetail.Validate.
var ErrNonPositiveQuantity = errors.New("quantity must be greater than zero")

// Invoice is a sales invoice header. Its total is never stored; see Total.
type Invoice struct {
	Code         string          `gorm:"primaryKey;size:64" json:"code"`
	StoreCode    string          `gorm:"size:64;index;not null" json:"store_code"`
	Store        *Store          `gorm:"foreignKey:StoreCode" json:"store,omitempty"`
	CustomerCode string          `gorm:"size:64;index;not null" json:"customer_code"`
	Customer     *Customer       `gorm:"foreignKey:CustomerCode" json:"customer,omitempty"`
	Year         int             `gorm:"not null" json:"year"`
	Month        int             `gorm:"not null" json:"month"`
	Details      []InvoiceDetail `gorm:"foreignKey:InvoiceCode;constraint:OnDelete:CASCADE" json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Total sums the subtotals of the preloaded details. An invoice without
// details totals zero.
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range i.Details {
		total = total.Add(d.Subtotal)
	}
	return total
}

// Period formats year and month as MM/YYYY.
func (i *Invoice) Period() string {
	return fmt.Sprintf("%02d/%04d", i.Month, i.Year)
}

// InvoiceDetail is one product line of an invoice.
type InvoiceDetail struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InvoiceCode string          `gorm:"size:64;index;not null" json:"invoice_code"`
	ProductCode string          `gorm:"size:64;index;not null" json:"product_code"`
	Product     *Product        `gorm:"foreignKey:ProductCode" json:"product,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate checks the line item invariants.
func (d *InvoiceDetail) Validate() error {
	if d.Quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	return nil
}

// Reprice sets the quantity and recomputes the subtotal from the product's
// current unit price.
func (d *InvoiceDetail) Reprice(quantity int, product *Product) {
	d.Quantity = quantity
	d.Subtotal = product.LineTotal(quantity)
}

// NextInvoiceCode returns the first free code of the form INV-YYYYMM-NNNN for
// the given period. It must run inside the transaction that creates the invoice.
func NextInvoiceCode(db *gorm.DB, year, month int) (string, error) {
	prefix := fmt.Sprintf("INV-%04d%02d-", year, month)
	var count int64
	if err := db.Model(&Invoice{}).Where("code LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	for n := count + 1; ; n++ {
		code := fmt.Sprintf("%s%04d", prefix, n)
		var exists int64
		if err := db.Model(&Invoice{}).Where("code = ?", code).Count(&exists).Error; err != nil {
			return "", err
		}
		if exists == 0 {
			return code, nil
		}
	}
}

// All lists every model in dependency order for migrations.
func All() []any {
	return []any{
		&Store{}, &CustomerGroup{}, &Customer{}, &ProductCategory{}, &Product{},
		&Invoice{}, &InvoiceDetail{},
	}
}
