package database

import (
	"go-pos-ledger/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the ledger owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.LaptopCategory{},
		&model.Laptop{},
		&model.Accessory{},
		&model.Transaction{},
		&model.TransactionItem{},
		&model.StockLog{},
		&model.VoidedTransaction{},
	)
}
