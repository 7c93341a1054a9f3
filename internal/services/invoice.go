// Package services holds the invoice business rules on top of the repository.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/sales-invoices/internal/events"
	"github.com/diewo77/sales-invoices/internal/logging"
	"github.com/diewo77/sales-invoices/internal/metrics"
	"github.com/diewo77/sales-invoices/internal/models"
	"github.com/diewo77/sales-invoices/internal/repository"
	"github.com/diewo77/sales-invoices/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrNoLineItems     = errors.New("no line items with a positive quantity")
	ErrUnknownProduct  = errors.New("unknown product")
)

const createAttempts = 3

// Options tune the service.
type Options struct {
	PageSize int
	// CreateComputesSubtotal fills subtotals on line items created through
	// CreateInvoice. When false they are stored as zero.
	CreateComputesSubtotal bool
}

type InvoiceService struct {
	repo   repository.Repository
	events events.Publisher
	log    *zap.Logger
	opts   Options
	now    func() time.Time
}

func NewInvoiceService(repo repository.Repository, pub events.Publisher, log *zap.Logger, opts Options) *InvoiceService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	return &InvoiceService{repo: repo, events: pub, log: logging.OrNop(log), opts: opts, now: time.Now}
}

// InvoiceSummary is one row of the invoice list.
type InvoiceSummary struct {
	Code         string          `json:"code"`
	StoreCode    string          `json:"store_code"`
	CustomerCode string          `json:"customer_code"`
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	Period       string          `json:"period"`
	Total        decimal.Decimal `json:"total"`
}

// List returns invoices by descending code with their totals. rawPage is the
// unparsed page query value.
func (s *InvoiceService) List(ctx context.Context, rawPage string) (*Page[InvoiceSummary], error) {
	total, err := s.repo.CountInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}
	page := newPage[InvoiceSummary](rawPage, total, s.opts.PageSize)
	list, err := s.repo.ListInvoices(ctx, page.Offset(), page.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	page.Items = make([]InvoiceSummary, 0, len(list))
	for i := range list {
		inv := &list[i]
		page.Items = append(page.Items, InvoiceSummary{
			Code:         inv.Code,
			StoreCode:    inv.StoreCode,
			CustomerCode: inv.CustomerCode,
			Year:         inv.Year,
			Month:        inv.Month,
			Period:       inv.Period(),
			Total:        inv.Total(),
		})
	}
	return page, nil
}

// Get loads an invoice with its store, customer and line items.
func (s *InvoiceService) Get(ctx context.Context, code string) (*models.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, code)
	if err != nil {
		return nil, notFound(err, "invoice %q", code)
	}
	return inv, nil
}

// HeaderForm carries the raw header fields of the edit form.
type HeaderForm struct {
	StoreCode    string
	CustomerCode string
	Year         string
	Month        string
}

// HeaderFormFrom prefills the edit form from an invoice.
func HeaderFormFrom(inv *models.Invoice) HeaderForm {
	return HeaderForm{
		StoreCode:    inv.StoreCode,
		CustomerCode: inv.CustomerCode,
		Year:         fmt.Sprint(inv.Year),
		Month:        fmt.Sprint(inv.Month),
	}
}

// UpdateHeader validates and saves the header fields. Field problems are
// returned as violations with a nil error and nothing is written.
func (s *InvoiceService) UpdateHeader(ctx context.Context, code string, form HeaderForm) (*models.Invoice, validation.Violations, error) {
	inv, err := s.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	v := validation.Violations{}
	form.StoreCode = strings.TrimSpace(form.StoreCode)
	form.CustomerCode = strings.TrimSpace(form.CustomerCode)
	validation.Required("store_code", form.StoreCode, v)
	validation.Required("customer_code", form.CustomerCode, v)
	year := validation.IntRange("year", form.Year, 1900, 9999, v)
	month := validation.IntRange("month", form.Month, 1, 12, v)

	if form.StoreCode != "" {
		if _, err := s.repo.FindStore(ctx, form.StoreCode); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, nil, fmt.Errorf("find store: %w", err)
			}
			v.Add("store_code", "not_found")
		}
	}
	if form.CustomerCode != "" {
		if _, err := s.repo.FindCustomer(ctx, form.CustomerCode); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, nil, fmt.Errorf("find customer: %w", err)
			}
			v.Add("customer_code", "not_found")
		}
	}
	if !v.Empty() {
		return inv, v, nil
	}

	inv.StoreCode = form.StoreCode
	inv.CustomerCode = form.CustomerCode
	inv.Year = year
	inv.Month = month
	if err := s.repo.UpdateInvoiceHeader(ctx, inv); err != nil {
		return nil, nil, fmt.Errorf("update invoice %q: %w", code, err)
	}
	s.log.Info("invoice header updated", zap.String("code", code))
	return inv, nil, nil
}

// DeleteResult tells the caller where the deleted line item belonged and
// whether its invoice went away with it.
type DeleteResult struct {
	InvoiceCode    string
	InvoiceDeleted bool
}

// DeleteDetail removes a line item. When it was the invoice's last one the
// invoice is removed too, in the same transaction.
func (s *InvoiceService) DeleteDetail(ctx context.Context, id uint) (*DeleteResult, error) {
	var res DeleteResult
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		d, err := tx.GetDetail(ctx, id)
		if err != nil {
			return notFound(err, "invoice detail %d", id)
		}
		res.InvoiceCode = d.InvoiceCode
		if err := tx.DeleteDetail(ctx, id); err != nil {
			return notFound(err, "invoice detail %d", id)
		}
		left, err := tx.CountDetails(ctx, d.InvoiceCode)
		if err != nil {
			return fmt.Errorf("count details: %w", err)
		}
		if left == 0 {
			if err := tx.DeleteInvoice(ctx, d.InvoiceCode); err != nil {
				return fmt.Errorf("delete invoice %q: %w", d.InvoiceCode, err)
			}
			res.InvoiceDeleted = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.LineItemsDeletedTotal.Inc()
	s.log.Info("invoice detail deleted", zap.Uint("id", id), zap.String("invoice", res.InvoiceCode), zap.Bool("invoice_deleted", res.InvoiceDeleted))
	if res.InvoiceDeleted {
		metrics.InvoicesDeletedTotal.Inc()
		events.Emit(ctx, s.events, s.log, events.New(events.TypeInvoiceDeleted, res.InvoiceCode, events.InvoiceDeleted{
			Code:   res.InvoiceCode,
			Reason: "last_line_item_deleted",
		}))
	}
	return &res, nil
}

// UpdateQuantity sets a new quantity from its raw form value and reprices the
// line at the product's current unit price. The returned invoice code is set
// whenever the line item exists, even when the quantity is rejected.
func (s *InvoiceService) UpdateQuantity(ctx context.Context, id uint, raw string) (string, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return "", notFound(err, "invoice detail %d", id)
	}

	v := validation.Violations{}
	qty := validation.PositiveInt("quantity", raw, v)
	if !v.Empty() {
		metrics.QuantityUpdatesTotal.WithLabelValues("rejected").Inc()
		return d.InvoiceCode, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	if d.Product == nil {
		return d.InvoiceCode, fmt.Errorf("product %q of detail %d is missing", d.ProductCode, id)
	}

	d.Reprice(qty, d.Product)
	if err := d.Validate(); err != nil {
		metrics.QuantityUpdatesTotal.WithLabelValues("rejected").Inc()
		return d.InvoiceCode, fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	if err := s.repo.SaveDetail(ctx, d); err != nil {
		metrics.QuantityUpdatesTotal.WithLabelValues("failed").Inc()
		return d.InvoiceCode, fmt.Errorf("save detail %d: %w", id, err)
	}
	metrics.QuantityUpdatesTotal.WithLabelValues("ok").Inc()
	s.log.Info("invoice detail quantity updated", zap.Uint("id", id), zap.Int("quantity", qty))
	return d.InvoiceCode, nil
}

// CreateRequest pairs product codes with quantities by position. Extra
// entries in the longer slice are ignored.
type CreateRequest struct {
	StoreCode    string
	CustomerCode string
	ProductCodes []string
	Quantities   []int
}

// CreateInvoice creates a header for the current month with one line per
// pair whose quantity is positive. Nothing is written when a product is
// unknown or no pair qualifies.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateRequest) (*models.Invoice, error) {
	store, err := s.repo.FindStore(ctx, req.StoreCode)
	if err != nil {
		return nil, notFound(err, "store %q", req.StoreCode)
	}
	customer, err := s.repo.FindCustomer(ctx, req.CustomerCode)
	if err != nil {
		return nil, notFound(err, "customer %q", req.CustomerCode)
	}

	n := min(len(req.ProductCodes), len(req.Quantities))
	var codes []string
	var quantities []int
	for i := 0; i < n; i++ {
		if req.Quantities[i] > 0 {
			codes = append(codes, req.ProductCodes[i])
			quantities = append(quantities, req.Quantities[i])
		}
	}
	if len(codes) == 0 {
		return nil, ErrNoLineItems
	}

	products, err := s.repo.FindProducts(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	byCode := make(map[string]*models.Product, len(products))
	for i := range products {
		byCode[products[i].Code] = &products[i]
	}

	details := make([]models.InvoiceDetail, 0, len(codes))
	for i, code := range codes {
		p, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, code)
		}
		d := models.InvoiceDetail{ProductCode: code, Quantity: quantities[i], Subtotal: decimal.Zero}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("product %q: %w", code, err)
		}
		if s.opts.CreateComputesSubtotal {
			d.Subtotal = p.LineTotal(quantities[i])
		}
		details = append(details, d)
	}

	now := s.now()
	inv := &models.Invoice{
		StoreCode:    store.Code,
		CustomerCode: customer.Code,
		Year:         now.Year(),
		Month:        int(now.Month()),
	}
	// A concurrent create can take the same sequence number between lookup
	// and insert; the loser retries with a fresh number.
	for attempt := 1; ; attempt++ {
		err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
			code, err := tx.NextInvoiceCode(ctx, inv.Year, inv.Month)
			if err != nil {
				return fmt.Errorf("next invoice code: %w", err)
			}
			inv.Code = code
			return tx.CreateInvoice(ctx, inv, details)
		})
		if err == nil || !errors.Is(err, repository.ErrConflict) || attempt == createAttempts {
			break
		}
		s.log.Warn("invoice code taken, retrying", zap.String("code", inv.Code), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created", zap.String("code", inv.Code), zap.Int("lines", len(details)))
	events.Emit(ctx, s.events, s.log, events.New(events.TypeInvoiceCreated, inv.Code, events.InvoiceCreated{
		Code:         inv.Code,
		StoreCode:    inv.StoreCode,
		CustomerCode: inv.CustomerCode,
		Lines:        len(details),
	}))
	return inv, nil
}

// CreateFormData is what the creation page offers to pick from.
type CreateFormData struct {
	Products       []models.Product
	CustomerGroups []models.CustomerGroup
	Stores         []models.Store
}

func (s *InvoiceService) CreateFormData(ctx context.Context) (*CreateFormData, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	groups, err := s.repo.ListCustomerGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customer groups: %w", err)
	}
	stores, err := s.repo.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return &CreateFormData{Products: products, CustomerGroups: groups, Stores: stores}, nil
}

// notFound maps the repository's not-found error to ErrNotFound with context.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
