package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/diewo77/sales-invoices/internal/models"
	"github.com/diewo77/sales-invoices/internal/repository"
	"github.com/shopspring/decimal"
)

// Column positions in an upload row. Column 10 is not used.
const (
	colEnterprise = iota
	colStore
	colAddress
	colYear
	colMonth
	colInvoice
	colGroup
	colGroupDescription
	colCustomer
	colCategory
	_
	colProduct
	colProductName
	colUnit
	colQuantity
	colUnitPrice

	minColumns
)

var (
	ErrTooFewColumns = errors.New("too few columns")
	ErrEmptyCode     = errors.New("empty code")
	ErrNotInteger    = errors.New("not an integer")
	ErrNotNumber     = errors.New("not a number")
)

// RowError locates the first malformed row. Line is 1-based and counts the
// header; Column is -1 when the row as a whole is rejected.
type RowError struct {
	Line   int
	Column int
	Err    error
}

func (e *RowError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Batch is the deduplicated content of one upload.
type Batch struct {
	repository.Batch
	Rows int
}

// Result summarises the batch contents.
func (b *Batch) Result() ImportResult {
	return ImportResult{
		Rows:           b.Rows,
		Stores:         len(b.Stores),
		CustomerGroups: len(b.Groups),
		Customers:      len(b.Customers),
		Categories:     len(b.Categories),
		Products:       len(b.Products),
		Invoices:       len(b.Invoices),
		Details:        len(b.Details),
	}
}

// builder keeps the first-seen instance of every natural key.
type builder struct {
	batch      Batch
	stores     map[string]bool
	groups     map[string]bool
	customers  map[string]bool
	categories map[string]bool
	products   map[string]int // index into batch.Products
	invoices   map[string]bool
}

func newBuilder() *builder {
	return &builder{
		stores:     map[string]bool{},
		groups:     map[string]bool{},
		customers:  map[string]bool{},
		categories: map[string]bool{},
		products:   map[string]int{},
		invoices:   map[string]bool{},
	}
}

// Parse reads every row of src and builds the batch to persist. The first
// malformed row aborts parsing with a *RowError; nothing is returned then.
func Parse(src RowSource) (*Batch, error) {
	b := newBuilder()
	line := 0
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &RowError{Line: line, Column: -1, Err: err}
		}
		if line == 1 || blank(rec) {
			continue
		}
		if err := b.add(line, rec); err != nil {
			return nil, err
		}
	}
	return &b.batch, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type row struct {
	line   int
	fields []string
}

func (r row) code(col int) (string, error) {
	v := strings.TrimSpace(r.fields[col])
	if v == "" {
		return "", &RowError{Line: r.line, Column: col, Err: ErrEmptyCode}
	}
	return v, nil
}

func (r row) text(col int) string {
	return strings.TrimSpace(r.fields[col])
}

func (r row) integer(col int) (int, error) {
	n, err := strconv.Atoi(r.text(col))
	if err != nil {
		return 0, &RowError{Line: r.line, Column: col, Err: fmt.Errorf("%w: %q", ErrNotInteger, r.text(col))}
	}
	return n, nil
}

func (r row) money(col int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(r.text(col))
	if err != nil {
		return decimal.Zero, &RowError{Line: r.line, Column: col, Err: fmt.Errorf("%w: %q", ErrNotNumber, r.text(col))}
	}
	return d.Round(2), nil
}

func (b *builder) add(line int, fields []string) error {
	if len(fields) < minColumns {
		return &RowError{Line: line, Column: -1, Err: fmt.Errorf("%w: got %d, want %d", ErrTooFewColumns, len(fields), minColumns)}
	}
	r := row{line: line, fields: fields}

	storeCode, err := r.code(colStore)
	if err != nil {
		return err
	}
	groupCode, err := r.code(colGroup)
	if err != nil {
		return err
	}
	customerCode, err := r.code(colCustomer)
	if err != nil {
		return err
	}
	categoryCode, err := r.code(colCategory)
	if err != nil {
		return err
	}
	productCode, err := r.code(colProduct)
	if err != nil {
		return err
	}
	invoiceCode, err := r.code(colInvoice)
	if err != nil {
		return err
	}
	quantity, err := r.integer(colQuantity)
	if err != nil {
		return err
	}
	if err := (&models.InvoiceDetail{Quantity: quantity}).Validate(); err != nil {
		return &RowError{Line: line, Column: colQuantity, Err: err}
	}
	price, err := r.money(colUnitPrice)
	if err != nil {
		return err
	}
	if err := (&models.Product{UnitPrice: price}).Validate(); err != nil {
		return &RowError{Line: line, Column: colUnitPrice, Err: err}
	}
	year, err := r.integer(colYear)
	if err != nil {
		return err
	}
	month, err := r.integer(colMonth)
	if err != nil {
		return err
	}

	if !b.stores[storeCode] {
		b.stores[storeCode] = true
		b.batch.Stores = append(b.batch.Stores, models.Store{
			Code:       storeCode,
			Enterprise: r.text(colEnterprise),
			Address:    r.text(colAddress),
		})
	}
	if !b.groups[groupCode] {
		b.groups[groupCode] = true
		b.batch.Groups = append(b.batch.Groups, models.CustomerGroup{
			Code:        groupCode,
			Description: r.text(colGroupDescription),
		})
	}
	if !b.customers[customerCode] {
		b.customers[customerCode] = true
		b.batch.Customers = append(b.batch.Customers, models.Customer{Code: customerCode, GroupCode: groupCode})
	}
	if !b.categories[categoryCode] {
		b.categories[categoryCode] = true
		b.batch.Categories = append(b.batch.Categories, models.ProductCategory{Code: categoryCode, Name: categoryCode})
	}
	idx, ok := b.products[productCode]
	if !ok {
		idx = len(b.batch.Products)
		b.products[productCode] = idx
		b.batch.Products = append(b.batch.Products, models.Product{
			Code:         productCode,
			CategoryCode: categoryCode,
			Name:         r.text(colProductName),
			Unit:         r.text(colUnit),
			UnitPrice:    price,
		})
	}
	if !b.invoices[invoiceCode] {
		b.invoices[invoiceCode] = true
		b.batch.Invoices = append(b.batch.Invoices, models.Invoice{
			Code:         invoiceCode,
			StoreCode:    storeCode,
			CustomerCode: customerCode,
			Year:         year,
			Month:        month,
		})
	}

	product := &b.batch.Products[idx]
	b.batch.Details = append(b.batch.Details, models.InvoiceDetail{
		InvoiceCode: invoiceCode,
		ProductCode: productCode,
		Quantity:    quantity,
		Subtotal:    product.LineTotal(quantity),
	})
	b.batch.Rows++
	return nil
}
