package model

import "time"

type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeRemove ChangeType = "remove"
	ChangeSold   ChangeType = "sold"
)

// StockLog is one append-only entry of the stock audit trail. Replaying all
// entries of a product (add minus remove and sold) yields its current stock.
type StockLog struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ProductType ProductKind `gorm:"type:varchar(20);not null;index:idx_stock_logs_product" json:"product_type"`
	ProductID   uint        `gorm:"not null;index:idx_stock_logs_product" json:"product_id"`
	ChangeType  ChangeType  `gorm:"type:varchar(10);not null" json:"change_type"`
	Quantity    int         `gorm:"not null" json:"quantity"`
	Description string      `gorm:"type:text" json:"description"`
	// Reference makes compensating writes idempotent (e.g. "void:<tx>:<item>").
	Reference *string   `gorm:"type:varchar(120);uniqueIndex" json:"reference,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
