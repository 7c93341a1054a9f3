package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/sales-invoices/internal/db"
	"github.com/diewo77/sales-invoices/internal/events"
	"github.com/diewo77/sales-invoices/internal/importer"
	"github.com/diewo77/sales-invoices/internal/middleware"
	"github.com/diewo77/sales-invoices/internal/models"
	"github.com/diewo77/sales-invoices/internal/repository"
	"github.com/diewo77/sales-invoices/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const csvHeader = "doanh_nghiep,ma_cua_hang,dia_chi,nam,thang,ma_hoa_don,ma_nhom_kh,thong_tin_nhom_kh,ma_kh,ma_nhom_hang,nhom_hang,ma_hang,mat_hang,dvt,sl_ban,don_gia\n"

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

// seed two stores, two customers, products A/B/C/101 and invoice HD001 with two lines
func seedInvoiceFixtures(t *testing.T, gdb *gorm.DB) (first, second models.InvoiceDetail) {
	t.Helper()
	require.NoError(t, gdb.Create(&[]models.Store{{Code: "S1", Enterprise: "ACME"}, {Code: "S2", Enterprise: "ACME"}}).Error)
	require.NoError(t, gdb.Create(&models.CustomerGroup{Code: "G1", Description: "Retail"}).Error)
	require.NoError(t, gdb.Create(&[]models.Customer{{Code: "C1", GroupCode: "G1"}, {Code: "C2", GroupCode: "G1"}}).Error)
	require.NoError(t, gdb.Create(&models.ProductCategory{Code: "CAT", Name: "CAT"}).Error)
	for code, price := range map[string]string{"A": "2.50", "B": "10", "C": "1.20", "101": "7"} {
		require.NoError(t, gdb.Create(&models.Product{Code: code, CategoryCode: "CAT", Name: "Product " + code, UnitPrice: decimal.RequireFromString(price)}).Error)
	}
	require.NoError(t, gdb.Create(&models.Invoice{Code: "HD001", StoreCode: "S1", CustomerCode: "C1", Year: 2024, Month: 3}).Error)
	first = models.InvoiceDetail{InvoiceCode: "HD001", ProductCode: "A", Quantity: 2, Subtotal: decimal.RequireFromString("5")}
	second = models.InvoiceDetail{InvoiceCode: "HD001", ProductCode: "B", Quantity: 1, Subtotal: decimal.RequireFromString("10")}
	require.NoError(t, gdb.Create(&first).Error)
	require.NoError(t, gdb.Create(&second).Error)
	return first, second
}

func newTestServer(t *testing.T, gdb *gorm.DB) http.Handler {
	t.Helper()
	repo := repository.New(gdb)
	pub := &events.Recorder{}
	svc := services.NewInvoiceService(repo, pub, zap.NewNop(), services.Options{PageSize: 10})
	h := NewInvoiceHandler(svc, importer.New(repo, pub, zap.NewNop()), zap.NewNop(), 1)
	mux := http.NewServeMux()
	h.Register(mux)
	return middleware.Prefs(mux)
}

func do(t *testing.T, app http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func postForm(path string, values map[string]string) *http.Request {
	var parts []string
	for k, v := range values {
		parts = append(parts, k+"="+v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(strings.Join(parts, "&")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/invoices/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func TestInvoiceListJSON(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	seedInvoiceFixtures(t, gdb)
	require.NoError(t, gdb.Create(&models.Invoice{Code: "HD002", StoreCode: "S1", CustomerCode: "C1", Year: 2024, Month: 4}).Error)
	app := newTestServer(t, gdb)

	req := httptest.NewRequest(http.MethodGet, "/invoices/", nil)
	req.Header.Set("Accept", "application/json")
	w := do(t, app, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Items []struct {
			Code   string `json:"code"`
			Period string `json:"period"`
			Total  string `json:"total"`
		} `json:"items"`
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 10, list.PageSize)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "HD002", list.Items[0].Code)
	assert.Equal(t, "0", list.Items[0].Total)
	assert.Equal(t, "15", list.Items[1].Total)
	assert.Equal(t, "03/2024", list.Items[1].Period)
}

func TestInvoiceListHTML(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	seedInvoiceFixtures(t, gdb)
	app := newTestServer(t, gdb)

	w := do(t, app, httptest.NewRequest(http.MethodGet, "/invoices/?page=abc&lang=vi", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `href="/invoices/HD001/"`)
	assert.Contains(t, body, "15.00")
	assert.Contains(t, body, "Tổng giá")
	assert.Contains(t, body, "<td>03/2024</td>")
}

func TestUploadImportsCSV(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	app := newTestServer(t, gdb)
	content := csvHeader +
		"ACME,S1,A,2024,3,HD100,G1,R,C1,CAT1,-,P1,Milk,box,2,10\n" +
		"ACME,S1,A,2024,3,HD100,G1,R,C1,CAT1,-,P2,Tea,box,1,4\n"

	w := do(t, app, uploadRequest(t, "sales.csv", content))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/invoices/", w.Header().Get("Location"))
	assert.Equal(t, int64(1), countRows(t, gdb, &models.Invoice{}))
	assert.Equal(t, int64(2), countRows(t, gdb, &models.InvoiceDetail{}))

	// the flash is shown once on the next page
	req := httptest.NewRequest(http.MethodGet, "/invoices/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	page := do(t, app, req)
	assert.Contains(t, page.Body.String(), "Import invoice succeeded")
	assert.Contains(t, page.Body.String(), "24.00")
}

func TestUploadMalformedPersistsNothing(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	app := newTestServer(t, gdb)
	content := csvHeader +
		"ACME,S1,A,2024,3,HD100,G1,R,C1,CAT1,-,P1,Milk,box,2,10\n" +
		"ACME,S1,A,2024,3,HD100,G1,R,C1,CAT1,-,P2,Tea,box,many,4\n"

	w := do(t, app, uploadRequest(t, "sales.csv", content))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Import invoice failed")
	for _, m := range models.All() {
		assert.Zero(t, countRows(t, gdb, m))
	}
}

func TestUploadRequiresFile(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	app := newTestServer(t, gdb)

	w := do(t, app, uploadRequest(t, "empty.csv", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please choose a file to import")

	req := httptest.NewRequest(http.MethodPost, "/invoices/", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = do(t, app, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInvoiceDetail(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	seedInvoiceFixtures(t, gdb)
	app := newTestServer(t, gdb)

	w := do(t, app, httptest.NewRequest(http.MethodGet, "/invoices/HD001/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Product A")
	assert.Contains(t, body, "15.00")
	assert.Contains(t, body, `action="/invoice/delete_detail/`)

	w = do(t, app, httptest.NewRequest(http.MethodGet, "/invoices/NOPE/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceUpdateHeader(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	seedInvoiceFixtures(t, gdb)
	app := newTestServer(t, gdb)

	w := do(t, app, postForm("/invoices/HD001/", map[string]string{"store_code": "S1", "customer_code": "C1", "year": "2024", "month": "13"}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Out of range")

	w = do(t, app, postForm("/invoices/HD001/", map[string]string{"store_code": "S2", "customer_code": "C2", "year": "2023", "month": "12"}))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/invoices/HD001/", w.Header().Get("Location"))

	var inv models.Invoice
	require.NoError(t, gdb.First(&inv, "code = ?", "HD001").Error)
	assert.Equal(t, "S2", inv.StoreCode)
	assert.Equal(t, 12, inv.Month)

	w = do(t, app, postForm("/invoices/NOPE/", map[string]string{"store_code": "S1"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDetailRedirects(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	first, second := seedInvoiceFixtures(t, gdb)
	app := newTestServer(t, gdb)

	w := do(t, app, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/invoice/delete_detail/%d/", first.ID), nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/invoices/HD001/", w.Header().Get("Location"))
	assert.Equal(t, int64(1), countRows(t, gdb, &models.Invoice{}))

	w = do(t, app, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/invoice/delete_detail/%d/", second.ID), nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/invoices/", w.Header().Get("Location"))
	assert.Zero(t, countRows(t, gdb, &models.Invoice{}))

	w = do(t, app, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/invoice/delete_detail/%d/", second.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, app, httptest.NewRequest(http.MethodPost, "/invoice/delete_detail/abc/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateQuantityRedirects(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	first, _ := seedInvoiceFixtures(t, gdb)
	app := newTestServer(t, gdb)
	path := fmt.Sprintf("/invoice/detail/update/%d/", first.ID)

	w := do(t, app, postForm(path, map[string]string{"quantity": "6"}))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/invoices/HD001/", w.Header().Get("Location"))

	var d models.InvoiceDetail
	require.NoError(t, gdb.First(&d, first.ID).Error)
	assert.Equal(t, 6, d.Quantity)
	assert.Equal(t, "15.00", d.Subtotal.StringFixed(2))

	for _, bad := range []string{"0", "-2", "1.5", "x"} {
		w = do(t, app, postForm(path, map[string]string{"quantity": bad}))
		assert.Equal(t, http.StatusSeeOther, w.Code, bad)
		assert.Equal(t, "/invoices/HD001/", w.Header().Get("Location"), bad)
	}
	require.NoError(t, gdb.First(&d, first.ID).Error)
	assert.Equal(t, 6, d.Quantity)

	w = do(t, app, postForm("/invoice/detail/update/9999/", map[string]string{"quantity": "1"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateForm(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	seedInvoiceFixtures(t, gdb)
	app := newTestServer(t, gdb)

	w := do(t, app, httptest.NewRequest(http.MethodGet, "/create-invoice/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `data-product="101"`)
	assert.Contains(t, body, `<option value="S2">`)
	assert.Contains(t, body, `<option value="C1">C1</option>`)
}

func TestInvoiceCodesAreEscapedInURLs(t *testing.T) {
	gdb := setupInvoiceTestDB(t)
	seedInvoiceFixtures(t, gdb)
	require.NoError(t, gdb.Create(&models.Invoice{Code: "HD#7", StoreCode: "S1", CustomerCode: "C1", Year: 2024, Month: 5}).Error)
	d := models.InvoiceDetail{InvoiceCode: "HD#7", ProductCode: "A", Quantity: 1, Subtotal: decimal.RequireFromString("2.50")}
	require.NoError(t, gdb.Create(&d).Error)
	app := newTestServer(t, gdb)

	w := do(t, app, postForm(fmt.Sprintf("/invoice/detail/update/%d/", d.ID), map[string]string{"quantity": "2"}))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/invoices/HD%237/", w.Header().Get("Location"))

	w = do(t, app, httptest.NewRequest(http.MethodGet, "/invoices/HD%237/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/invoices/HD%237/"`)

	w = do(t, app, httptest.NewRequest(http.MethodGet, "/invoices/", nil))
	assert.Contains(t, w.Body.String(), `href="/invoices/HD%237/"`)
}
