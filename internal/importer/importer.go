// Package importer turns sales uploads (CSV or XLSX) into stores, customers,
// products, invoices and line items. Parsing is all-or-nothing and the write
// happens in a single transaction.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/sales-invoices/internal/events"
	"github.com/diewo77/sales-invoices/internal/logging"
	"github.com/diewo77/sales-invoices/internal/metrics"
	"github.com/diewo77/sales-invoices/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportResult counts what one upload contained. Inserted reports how many of
// those rows were new to the database.
type ImportResult struct {
	BatchID        string                `json:"batch_id"`
	Rows           int                   `json:"rows"`
	Stores         int                   `json:"stores"`
	CustomerGroups int                   `json:"customer_groups"`
	Customers      int                   `json:"customers"`
	Categories     int                   `json:"categories"`
	Products       int                   `json:"products"`
	Invoices       int                   `json:"invoices"`
	Details        int                   `json:"details"`
	Inserted       repository.WriteStats `json:"inserted"`
}

// Importer persists parsed uploads.
type Importer struct {
	repo   repository.Repository
	events events.Publisher
	log    *zap.Logger
}

func New(repo repository.Repository, pub events.Publisher, log *zap.Logger) *Importer {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Importer{repo: repo, events: pub, log: logging.OrNop(log)}
}

// Import parses src and writes the batch. On any error nothing is persisted.
// name identifies the upload in logs and events.
func (im *Importer) Import(ctx context.Context, name string, src RowSource) (*ImportResult, error) {
	start := time.Now()
	defer func() { metrics.ImportDuration.Observe(time.Since(start).Seconds()) }()

	batch, err := Parse(src)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("rejected").Inc()
		im.log.Warn("import rejected", zap.String("source", name), zap.Error(err))
		return nil, err
	}

	var stats repository.WriteStats
	err = im.repo.WithTx(ctx, func(tx repository.Repository) error {
		var err error
		stats, err = tx.SaveBatch(ctx, &batch.Batch)
		return err
	})
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		im.log.Error("import write failed", zap.String("source", name), zap.Error(err))
		return nil, fmt.Errorf("save import batch: %w", err)
	}

	res := batch.Result()
	res.BatchID = uuid.NewString()
	res.Inserted = stats

	metrics.ImportsTotal.WithLabelValues("ok").Inc()
	metrics.ImportedRowsTotal.Add(float64(res.Rows))
	im.log.Info("import completed",
		zap.String("batch_id", res.BatchID),
		zap.String("source", name),
		zap.Int("rows", res.Rows),
		zap.Int("invoices", res.Invoices),
		zap.Int64("new_invoices", stats.Invoices),
		zap.Int64("details", stats.Details),
	)
	events.Emit(ctx, im.events, im.log, events.New(events.TypeImportCompleted, res.BatchID, events.ImportCompleted{
		BatchID:  res.BatchID,
		Source:   name,
		Rows:     res.Rows,
		Invoices: res.Invoices,
		Details:  res.Details,
	}))
	return &res, nil
}
