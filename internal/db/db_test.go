package db

import (
	"fmt"
	"testing"

	"github.com/diewo77/sales-invoices/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{`"postgres://u:p@h:5432/db"`, "postgres://u:p@h:5432/db"},
		{"host=h   user=u dbname=db", "host=h user=u dbname=db sslmode=disable"},
		{"host=h user=u dbname=db sslmode=require", "host=h user=u dbname=db sslmode=require"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDSN(tt.in), tt.in)
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=inv password=secret dbname=invoices sslmode=disable")
	assert.Equal(t, "postgres://inv:secret@db:5432/invoices?sslmode=disable", got)
	assert.Equal(t, "host=db", ToURLDSN("host=db"))
	assert.Equal(t, "postgres://x@y/z", ToURLDSN("postgres://x@y/z"))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "host=h password=*** dbname=d", MaskDSN("host=h password=hunter2 dbname=d"))
	assert.Equal(t, "postgres://u:***@h/db", MaskDSN("postgres://u:hunter2@h/db"))
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}
	conn, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(conn, cfg.Driver, cfg.ConnString(), true))
	for _, table := range []string{"stores", "customer_groups", "customers", "product_categories", "products", "invoices", "invoice_details"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
