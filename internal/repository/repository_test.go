package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/diewo77/sales-invoices/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return New(db), db
}

func sampleBatch() *Batch {
	return &Batch{
		Stores:     []models.Store{{Code: "S1", Enterprise: "ACME"}},
		Groups:     []models.CustomerGroup{{Code: "G1"}},
		Customers:  []models.Customer{{Code: "C1", GroupCode: "G1"}, {Code: "C2", GroupCode: "G1"}},
		Categories: []models.ProductCategory{{Code: "CAT"}},
		Products:   []models.Product{{Code: "P1", CategoryCode: "CAT", Name: "Milk", UnitPrice: decimal.NewFromInt(3)}},
		Invoices: []models.Invoice{
			{Code: "HD1", StoreCode: "S1", CustomerCode: "C1", Year: 2024, Month: 1},
			{Code: "HD2", StoreCode: "S1", CustomerCode: "C2", Year: 2024, Month: 2},
		},
		Details: []models.InvoiceDetail{
			{InvoiceCode: "HD1", ProductCode: "P1", Quantity: 2, Subtotal: decimal.NewFromInt(6)},
			{InvoiceCode: "HD2", ProductCode: "P1", Quantity: 1, Subtotal: decimal.NewFromInt(3)},
		},
	}
}

func TestSaveBatchSkipsExistingParents(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	stats, err := repo.SaveBatch(ctx, sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Stores: 1, Groups: 1, Customers: 2, Categories: 1, Products: 1, Invoices: 2, Details: 2}, stats)

	again := sampleBatch()
	again.Stores[0].Enterprise = "Renamed"
	stats, err = repo.SaveBatch(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Details: 2}, stats)

	s, err := repo.FindStore(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "ACME", s.Enterprise)

	n, err := repo.CountDetails(ctx, "HD1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWithTxRollsBack(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(tx Repository) error {
		if _, err := tx.SaveBatch(ctx, sampleBatch()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := repo.CountInvoices(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvoiceQueries(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	_, err := repo.SaveBatch(ctx, sampleBatch())
	require.NoError(t, err)

	list, err := repo.ListInvoices(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "HD2", list[0].Code)
	assert.Len(t, list[1].Details, 1)

	list, err = repo.ListInvoices(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "HD1", list[0].Code)

	inv, err := repo.GetInvoice(ctx, "HD1")
	require.NoError(t, err)
	require.NotNil(t, inv.Store)
	require.NotNil(t, inv.Customer)
	require.Len(t, inv.Details, 1)
	require.NotNil(t, inv.Details[0].Product)
	assert.Equal(t, "Milk", inv.Details[0].Product.Name)

	_, err = repo.GetInvoice(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindCustomer(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetDetail(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteDetail(ctx, 999), ErrNotFound)

	products, err := repo.FindProducts(ctx, []string{"P1", "nope"})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	groups, err := repo.ListCustomerGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Customers, 2)
}

func TestCreateAndUpdateInvoice(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	_, err := repo.SaveBatch(ctx, sampleBatch())
	require.NoError(t, err)

	inv := &models.Invoice{Code: "INV-202501-0001", StoreCode: "S1", CustomerCode: "C2", Year: 2025, Month: 1}
	details := []models.InvoiceDetail{{ProductCode: "P1", Quantity: 4}}
	require.NoError(t, repo.CreateInvoice(ctx, inv, details))
	require.Len(t, inv.Details, 1)
	assert.Equal(t, "INV-202501-0001", inv.Details[0].InvoiceCode)
	assert.NotZero(t, inv.Details[0].ID)

	inv.CustomerCode = "C1"
	inv.Month = 6
	require.NoError(t, repo.UpdateInvoiceHeader(ctx, inv))
	var got models.Invoice
	require.NoError(t, db.First(&got, "code = ?", inv.Code).Error)
	assert.Equal(t, "C1", got.CustomerCode)
	assert.Equal(t, 6, got.Month)

	require.NoError(t, repo.DeleteDetail(ctx, inv.Details[0].ID))
	require.NoError(t, repo.DeleteInvoice(ctx, inv.Code))
	_, err = repo.GetInvoice(ctx, inv.Code)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveBatchPricesDetailsFromStoredProduct(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	_, err := repo.SaveBatch(ctx, sampleBatch())
	require.NoError(t, err)

	// same product arrives again with a different price; the stored one stays
	again := &Batch{
		Products: []models.Product{{Code: "P1", CategoryCode: "CAT", Name: "Milk", UnitPrice: decimal.NewFromInt(99)}},
		Details:  []models.InvoiceDetail{{InvoiceCode: "HD1", ProductCode: "P1", Quantity: 2, Subtotal: decimal.NewFromInt(198)}},
	}
	_, err = repo.SaveBatch(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, "6.00", again.Details[0].Subtotal.StringFixed(2))

	var last models.InvoiceDetail
	require.NoError(t, db.Order("id DESC").First(&last).Error)
	assert.Equal(t, "6.00", last.Subtotal.StringFixed(2))

	orphan := &Batch{Details: []models.InvoiceDetail{{InvoiceCode: "HD1", ProductCode: "nope", Quantity: 1}}}
	_, err = repo.SaveBatch(ctx, orphan)
	assert.ErrorIs(t, err, ErrNotFound)
}
