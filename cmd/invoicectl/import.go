package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/diewo77/sales-invoices/internal/db"
	"github.com/diewo77/sales-invoices/internal/events"
	"github.com/diewo77/sales-invoices/internal/importer"
	"github.com/diewo77/sales-invoices/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV or XLSX sales file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			name := filepath.Base(path)
			src, err := importer.NewSource(name, f)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			defer src.Close()

			var res *importer.ImportResult
			if dryRun {
				batch, err := importer.Parse(src)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				r := batch.Result()
				res = &r
			} else {
				conn, err := db.Open(a.cfg.Database, a.log)
				if err != nil {
					return err
				}
				pub := events.FromConfig(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, a.log)
				defer func() {
					if err := pub.Close(); err != nil {
						a.log.Warn("close event publisher", zap.Error(err))
					}
				}()
				res, err = importer.New(repository.New(conn), pub, a.log).Import(cmd.Context(), name, src)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate the file without writing to the database")
	return cmd
}
