package database

import (
	"path/filepath"
	"testing"

	"go-pos-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect("oracle", "whatever")
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestConnectAndMigrate_SQLite(t *testing.T) {
	db, err := Connect("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"laptops", "accessories", "transactions", "transaction_items", "stock_logs", "voided_transactions", "users"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// stock must never go negative at the storage level either
	err = db.Create(&model.Accessory{Name: "Mouse", Stock: -1}).Error
	assert.Error(t, err)
}
