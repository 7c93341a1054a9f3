// Package repository is the data-access layer over gorm. Parent entities are
// written with an insert-or-skip contract keyed on their natural codes.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/sales-invoices/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert hits an existing primary key.
	// It needs gorm's TranslateError, which db.Open turns on.
	ErrConflict = errors.New("record already exists")
)

const insertBatchSize = 500

// Batch is a set of rows written together by SaveBatch. Parents are written
// before details, and detail subtotals are recomputed from the stored product
// prices.
type Batch struct {
	Stores     []models.Store
	Groups     []models.CustomerGroup
	Customers  []models.Customer
	Categories []models.ProductCategory
	Products   []models.Product
	Invoices   []models.Invoice
	Details    []models.InvoiceDetail
}

// WriteStats counts the rows a SaveBatch call actually inserted. Parents whose
// code already existed are not counted.
type WriteStats struct {
	Stores     int64 `json:"stores"`
	Groups     int64 `json:"customer_groups"`
	Customers  int64 `json:"customers"`
	Categories int64 `json:"categories"`
	Products   int64 `json:"products"`
	Invoices   int64 `json:"invoices"`
	Details    int64 `json:"details"`
}

// Repository is the persistence contract used by the services and the importer.
type Repository interface {
	// WithTx runs fn inside a transaction; fn receives a Repository bound to it.
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	SaveBatch(ctx context.Context, b *Batch) (WriteStats, error)

	CountInvoices(ctx context.Context) (int64, error)
	ListInvoices(ctx context.Context, offset, limit int) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, code string) (*models.Invoice, error)
	UpdateInvoiceHeader(ctx context.Context, inv *models.Invoice) error
	CreateInvoice(ctx context.Context, inv *models.Invoice, details []models.InvoiceDetail) error
	DeleteInvoice(ctx context.Context, code string) error
	NextInvoiceCode(ctx context.Context, year, month int) (string, error)

	GetDetail(ctx context.Context, id uint) (*models.InvoiceDetail, error)
	SaveDetail(ctx context.Context, d *models.InvoiceDetail) error
	DeleteDetail(ctx context.Context, id uint) error
	CountDetails(ctx context.Context, invoiceCode string) (int64, error)

	FindStore(ctx context.Context, code string) (*models.Store, error)
	FindCustomer(ctx context.Context, code string) (*models.Customer, error)
	FindProducts(ctx context.Context, codes []string) ([]models.Product, error)
	ListStores(ctx context.Context) ([]models.Store, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListCustomerGroups(ctx context.Context) ([]models.CustomerGroup, error)
}

type gormRepository struct{ db *gorm.DB }

// New returns a gorm-backed Repository.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) SaveBatch(ctx context.Context, b *Batch) (WriteStats, error) {
	var stats WriteStats
	var err error
	if stats.Stores, err = insertOrSkip(r.db.WithContext(ctx), b.Stores); err != nil {
		return stats, fmt.Errorf("insert stores: %w", err)
	}
	if stats.Groups, err = insertOrSkip(r.db.WithContext(ctx), b.Groups); err != nil {
		return stats, fmt.Errorf("insert customer groups: %w", err)
	}
	if stats.Customers, err = insertOrSkip(r.db.WithContext(ctx), b.Customers); err != nil {
		return stats, fmt.Errorf("insert customers: %w", err)
	}
	if stats.Categories, err = insertOrSkip(r.db.WithContext(ctx), b.Categories); err != nil {
		return stats, fmt.Errorf("insert product categories: %w", err)
	}
	if stats.Products, err = insertOrSkip(r.db.WithContext(ctx), b.Products); err != nil {
		return stats, fmt.Errorf("insert products: %w", err)
	}
	if stats.Invoices, err = insertOrSkip(r.db.WithContext(ctx), b.Invoices); err != nil {
		return stats, fmt.Errorf("insert invoices: %w", err)
	}
	if err := r.priceDetails(ctx, b.Details); err != nil {
		return stats, err
	}
	if len(b.Details) > 0 {
		res := r.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(&b.Details, insertBatchSize)
		if res.Error != nil {
			return stats, fmt.Errorf("insert invoice details: %w", res.Error)
		}
		stats.Details = res.RowsAffected
	}
	return stats, nil
}

// priceDetails sets each subtotal from the unit price stored for its product,
// which is the batch's price only when the product was new.
func (r *gormRepository) priceDetails(ctx context.Context, details []models.InvoiceDetail) error {
	if len(details) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var codes []string
	for _, d := range details {
		if !seen[d.ProductCode] {
			seen[d.ProductCode] = true
			codes = append(codes, d.ProductCode)
		}
	}
	products, err := r.FindProducts(ctx, codes)
	if err != nil {
		return fmt.Errorf("load product prices: %w", err)
	}
	byCode := make(map[string]*models.Product, len(products))
	for i := range products {
		byCode[products[i].Code] = &products[i]
	}
	for i := range details {
		p, ok := byCode[details[i].ProductCode]
		if !ok {
			return fmt.Errorf("product %q of invoice %q: %w", details[i].ProductCode, details[i].InvoiceCode, ErrNotFound)
		}
		details[i].Subtotal = p.LineTotal(details[i].Quantity)
	}
	return nil
}

// insertOrSkip inserts rows, silently skipping any whose primary key exists.
func insertOrSkip[T any](db *gorm.DB, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		CreateInBatches(&rows, insertBatchSize)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) CountInvoices(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).Count(&n).Error
	return n, err
}

func (r *gormRepository) ListInvoices(ctx context.Context, offset, limit int) ([]models.Invoice, error) {
	var list []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Details").
		Order("code DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *gormRepository) GetInvoice(ctx context.Context, code string) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Store").
		Preload("Customer").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Details.Product").
		First(&inv, "code = ?", code).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (r *gormRepository) UpdateInvoiceHeader(ctx context.Context, inv *models.Invoice) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("code = ?", inv.Code).
		Updates(map[string]any{
			"store_code":    inv.StoreCode,
			"customer_code": inv.CustomerCode,
			"year":          inv.Year,
			"month":         inv.Month,
		}).Error
}

func (r *gormRepository) CreateInvoice(ctx context.Context, inv *models.Invoice, details []models.InvoiceDetail) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(inv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert invoice %q: %w", inv.Code, ErrConflict)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	if len(details) == 0 {
		return nil
	}
	for i := range details {
		details[i].InvoiceCode = inv.Code
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&details).Error; err != nil {
		return fmt.Errorf("insert invoice details: %w", err)
	}
	inv.Details = details
	return nil
}

func (r *gormRepository) DeleteInvoice(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Invoice{}).Error
}

func (r *gormRepository) NextInvoiceCode(ctx context.Context, year, month int) (string, error) {
	return models.NextInvoiceCode(r.db.WithContext(ctx), year, month)
}

func (r *gormRepository) GetDetail(ctx context.Context, id uint) (*models.InvoiceDetail, error) {
	var d models.InvoiceDetail
	if err := r.db.WithContext(ctx).Preload("Product").First(&d, id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *gormRepository) SaveDetail(ctx context.Context, d *models.InvoiceDetail) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(d).Error
}

func (r *gormRepository) DeleteDetail(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.InvoiceDetail{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepository) CountDetails(ctx context.Context, invoiceCode string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.InvoiceDetail{}).Where("invoice_code = ?", invoiceCode).Count(&n).Error
	return n, err
}

func (r *gormRepository) FindStore(ctx context.Context, code string) (*models.Store, error) {
	var s models.Store
	if err := r.db.WithContext(ctx).First(&s, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormRepository) FindCustomer(ctx context.Context, code string) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *gormRepository) FindProducts(ctx context.Context, codes []string) ([]models.Product, error) {
	var list []models.Product
	if len(codes) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&list).Error
	return list, err
}

func (r *gormRepository) ListStores(ctx context.Context) ([]models.Store, error) {
	var list []models.Store
	err := r.db.WithContext(ctx).Order("code").Find(&list).Error
	return list, err
}

func (r *gormRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).Order("code").Find(&list).Error
	return list, err
}

func (r *gormRepository) ListCustomerGroups(ctx context.Context) ([]models.CustomerGroup, error) {
	var list []models.CustomerGroup
	err := r.db.WithContext(ctx).
		Preload("Customers", func(db *gorm.DB) *gorm.DB { return db.Order("code") }).
		Order("code").
		Find(&list).Error
	return list, err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
