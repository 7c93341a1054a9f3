package main

import (
	"fmt"

	"github.com/diewo77/sales-invoices/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var autoOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(a.cfg.Database, a.log)
			if err != nil {
				return err
			}
			if err := db.Migrate(conn, a.cfg.Database.Driver, a.cfg.Database.ConnString(), !autoOnly); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations completed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoOnly, "auto", false, "Use gorm AutoMigrate even on postgres")
	return cmd
}
