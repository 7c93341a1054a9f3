package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/sales-invoices/httpx"
	"github.com/diewo77/sales-invoices/i18n"
	"github.com/diewo77/sales-invoices/internal/metrics"
	"github.com/diewo77/sales-invoices/internal/middleware"
	"github.com/diewo77/sales-invoices/internal/services"
	"go.uber.org/zap"
)

// code accepts a JSON string or number and keeps its literal text.
type code string

func (c *code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("code must be a string or a number: %w", err)
	}
	*c = code(n.String())
	return nil
}

type createPayload struct {
	StoreCode    code   `json:"ma_cua_hang"`
	CustomerCode code   `json:"ma_kh"`
	ProductIDs   []code `json:"product_ids"`
	Quantities   []int  `json:"quantities"`
}

func (p createPayload) request() services.CreateRequest {
	req := services.CreateRequest{
		StoreCode:    string(p.StoreCode),
		CustomerCode: string(p.CustomerCode),
		Quantities:   p.Quantities,
	}
	for _, id := range p.ProductIDs {
		req.ProductCodes = append(req.ProductCodes, string(id))
	}
	return req
}

// Create: POST /create-invoice/ and /create-invoice1/ – JSON only. Both
// endpoints share this handler; endpoint only labels the metric.
func (h *InvoiceHandler) Create(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPayload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}

		inv, err := h.Svc.CreateInvoice(r.Context(), payload.request())
		switch {
		case err == nil:
		case errors.Is(err, services.ErrNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", err.Error())
			return
		case errors.Is(err, services.ErrNoLineItems):
			httpx.JSONError(w, http.StatusBadRequest, "no_line_items", nil)
			return
		case errors.Is(err, services.ErrUnknownProduct):
			httpx.JSONError(w, http.StatusBadRequest, "unknown_product", err.Error())
			return
		default:
			h.Log.Error("create invoice",
				zap.String("request_id", middleware.RequestIDFrom(r.Context())),
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
			return
		}

		metrics.InvoicesCreatedTotal.WithLabelValues(endpoint).Inc()
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"message":      i18n.T(middleware.LangFrom(r), "flash_invoice_created"),
			"redirect_url": detailURL(inv.Code),
			"code":         inv.Code,
		})
	}
}
