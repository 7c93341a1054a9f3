// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_imports_total",
		Help: "Upload imports by outcome",
	}, []string{"outcome"})

	ImportedRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoice_imported_rows_total",
		Help: "Data rows accepted by successful imports",
	})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "invoice_import_duration_seconds",
		Help:    "Duration of parse and write for one import",
		Buckets: prometheus.DefBuckets,
	})

	InvoicesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_created_total",
		Help: "Invoices created through the JSON endpoints",
	}, []string{"endpoint"})

	InvoicesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoices_deleted_total",
		Help: "Invoices removed after their last line item was deleted",
	})

	LineItemsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoice_line_items_deleted_total",
		Help: "Invoice line items deleted",
	})

	QuantityUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_quantity_updates_total",
		Help: "Line item quantity updates by outcome",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
