package main

import (
	"net/http"

	"github.com/diewo77/sales-invoices/httpx"
	"github.com/diewo77/sales-invoices/internal/config"
	"github.com/diewo77/sales-invoices/internal/events"
	"github.com/diewo77/sales-invoices/internal/handlers"
	"github.com/diewo77/sales-invoices/internal/importer"
	"github.com/diewo77/sales-invoices/internal/middleware"
	"github.com/diewo77/sales-invoices/internal/repository"
	"github.com/diewo77/sales-invoices/internal/services"
	"github.com/diewo77/sales-invoices/view"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewApp builds the root handler with every route and the middleware chain.
func NewApp(db *gorm.DB, cfg *config.Config, log *zap.Logger, pub events.Publisher) http.Handler {
	view.SetLangResolver(middleware.LangFrom)

	repo := repository.New(db)
	svc := services.NewInvoiceService(repo, pub, log, services.Options{
		PageSize:               cfg.App.PageSize,
		CreateComputesSubtotal: cfg.App.CreateComputesSubtotal,
	})
	ih := handlers.NewInvoiceHandler(svc, importer.New(repo, pub, log), log, cfg.App.MaxUploadMB)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/invoices/", http.StatusFound)
	})

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	ih.Register(mux)

	// Metrics sits directly on the mux so r.Pattern is set when it reads it.
	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Prefs,
		middleware.Metrics,
	)
}
