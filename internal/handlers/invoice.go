package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diewo77/sales-invoices/flash"
	"github.com/diewo77/sales-invoices/httpx"
	"github.com/diewo77/sales-invoices/i18n"
	"github.com/diewo77/sales-invoices/internal/importer"
	"github.com/diewo77/sales-invoices/internal/middleware"
	"github.com/diewo77/sales-invoices/internal/services"
	"github.com/diewo77/sales-invoices/validation"
	"github.com/diewo77/sales-invoices/view"
	"go.uber.org/zap"
)

// InvoiceHandler serves the invoice pages. List is dual-format (HTML or JSON).
type InvoiceHandler struct {
	Svc            *services.InvoiceService
	Importer       *importer.Importer
	Log            *zap.Logger
	MaxUploadBytes int64
}

func NewInvoiceHandler(svc *services.InvoiceService, imp *importer.Importer, log *zap.Logger, maxUploadMB int) *InvoiceHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &InvoiceHandler{Svc: svc, Importer: imp, Log: log, MaxUploadBytes: int64(maxUploadMB) << 20}
}

// Register mounts the invoice routes.
func (h *InvoiceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /invoices/{$}", h.List)
	mux.HandleFunc("POST /invoices/{$}", h.Upload)
	mux.HandleFunc("GET /invoices/{code}/{$}", h.Detail)
	mux.HandleFunc("POST /invoices/{code}/{$}", h.UpdateHeader)
	mux.HandleFunc("POST /invoice/delete_detail/{id}/{$}", h.DeleteDetail)
	mux.HandleFunc("POST /invoice/detail/update/{id}/{$}", h.UpdateQuantity)
	mux.HandleFunc("GET /create-invoice/{$}", h.CreateForm)
	mux.HandleFunc("POST /create-invoice/{$}", h.Create("create-invoice"))
	mux.HandleFunc("POST /create-invoice1/{$}", h.Create("create-invoice1"))
}

func detailURL(code string) string {
	return "/invoices/" + url.PathEscape(code) + "/"
}

// flash sets a translated flash message for the next page.
func (h *InvoiceHandler) flash(w http.ResponseWriter, r *http.Request, level flash.Level, code string) {
	flash.Set(w, level, i18n.T(middleware.LangFrom(r), code))
}

func (h *InvoiceHandler) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	data := map[string]any{"Status": status, "Message": http.StatusText(status)}
	if rerr := view.RenderStatus(w, r, status, "error.html", data); rerr != nil {
		http.Error(w, http.StatusText(status), status)
	}
}

// List: GET /invoices/ – HTML or JSON
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		page, err := h.Svc.List(r.Context(), r.URL.Query().Get("page"))
		if err != nil {
			h.Log.Error("list invoices", zap.Error(err))
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, page)
		return
	}
	h.renderList(w, r, http.StatusOK, flash.Pop(w, r), "")
}

func (h *InvoiceHandler) renderList(w http.ResponseWriter, r *http.Request, status int, msg *flash.Message, fileError string) {
	page, err := h.Svc.List(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	data := map[string]any{"Page": page, "Flash": msg, "FileError": fileError}
	if err := view.RenderStatus(w, r, status, "invoices.html", data); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
	}
}

// Upload: POST /invoices/ – imports a CSV or XLSX file.
func (h *InvoiceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	lang := middleware.LangFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil || header.Size == 0 {
		if file != nil {
			_ = file.Close()
		}
		h.renderList(w, r, http.StatusUnprocessableEntity, nil, "flash_file_required")
		return
	}
	defer file.Close()

	failed := &flash.Message{Level: flash.Error, Text: i18n.T(lang, "flash_import_failed")}
	src, err := importer.NewSource(header.Filename, file)
	if err != nil {
		h.Log.Warn("unreadable upload", zap.String("file", header.Filename), zap.Error(err))
		h.renderList(w, r, http.StatusUnprocessableEntity, failed, "")
		return
	}
	defer src.Close()

	if _, err := h.Importer.Import(r.Context(), header.Filename, src); err != nil {
		var rowErr *importer.RowError
		if errors.As(err, &rowErr) {
			h.renderList(w, r, http.StatusUnprocessableEntity, failed, "")
			return
		}
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.flash(w, r, flash.Success, "flash_import_succeeded")
	httpx.SeeOther(w, r, "/invoices/")
}

// Detail: GET /invoices/{code}/
func (h *InvoiceHandler) Detail(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Svc.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		h.renderError(w, r, statusFor(err), err)
		return
	}
	data := map[string]any{
		"Invoice": inv,
		"Form":    services.HeaderFormFrom(inv),
		"Errors":  validation.Violations{},
		"Flash":   flash.Pop(w, r),
	}
	if err := view.Render(w, r, "invoice_detail.html", data); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
	}
}

// UpdateHeader: POST /invoices/{code}/
func (h *InvoiceHandler) UpdateHeader(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, err)
		return
	}
	form := services.HeaderForm{
		StoreCode:    r.PostForm.Get("store_code"),
		CustomerCode: r.PostForm.Get("customer_code"),
		Year:         r.PostForm.Get("year"),
		Month:        r.PostForm.Get("month"),
	}
	inv, violations, err := h.Svc.UpdateHeader(r.Context(), code, form)
	if err != nil {
		h.renderError(w, r, statusFor(err), err)
		return
	}
	if !violations.Empty() {
		data := map[string]any{"Invoice": inv, "Form": form, "Errors": violations}
		if err := view.RenderStatus(w, r, http.StatusUnprocessableEntity, "invoice_detail.html", data); err != nil {
			h.renderError(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	h.flash(w, r, flash.Success, "flash_invoice_updated")
	httpx.SeeOther(w, r, detailURL(code))
}

// DeleteDetail: POST /invoice/delete_detail/{id}/
func (h *InvoiceHandler) DeleteDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderError(w, r, http.StatusNotFound, services.ErrNotFound)
		return
	}
	res, err := h.Svc.DeleteDetail(r.Context(), id)
	if err != nil {
		h.renderError(w, r, statusFor(err), err)
		return
	}
	if res.InvoiceDeleted {
		h.flash(w, r, flash.Success, "flash_invoice_removed")
		httpx.SeeOther(w, r, "/invoices/")
		return
	}
	h.flash(w, r, flash.Success, "flash_product_removed")
	httpx.SeeOther(w, r, detailURL(res.InvoiceCode))
}

// UpdateQuantity: POST /invoice/detail/update/{id}/ – always back to the detail page.
func (h *InvoiceHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderError(w, r, http.StatusNotFound, services.ErrNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, err)
		return
	}
	code, err := h.Svc.UpdateQuantity(r.Context(), id, r.PostForm.Get("quantity"))
	switch {
	case err == nil:
		h.flash(w, r, flash.Success, "flash_quantity_updated")
	case errors.Is(err, services.ErrInvalidQuantity):
		h.flash(w, r, flash.Error, "flash_invalid_quantity")
	default:
		h.renderError(w, r, statusFor(err), err)
		return
	}
	httpx.SeeOther(w, r, detailURL(code))
}

// CreateForm: GET /create-invoice/
func (h *InvoiceHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.CreateFormData(r.Context())
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	page := map[string]any{
		"Products":       data.Products,
		"CustomerGroups": data.CustomerGroups,
		"Stores":         data.Stores,
		"Flash":          flash.Pop(w, r),
	}
	if err := view.Render(w, r, "create_invoice.html", page); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, err)
	}
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func statusFor(err error) int {
	if errors.Is(err, services.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
