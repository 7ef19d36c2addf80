package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentQRIS     PaymentMethod = "qris"
	PaymentTransfer PaymentMethod = "transfer"
)

// Transaction is an active sale. Voiding removes the row, so existence means active.
type Transaction struct {
	BaseModel
	CashierID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"cashier_id"`
	Cashier       *User             `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
	CustomerName  *string           `gorm:"type:varchar(255)" json:"customer_name"`
	PaymentMethod PaymentMethod     `gorm:"type:varchar(20);not null;index" json:"payment_method"`
	TotalPrice    decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"total_price"`
	Items         []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"items"`
}

// TransactionItem is immutable once persisted.
type TransactionItem struct {
	BaseModel
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_id"`
	ProductType   ProductKind     `gorm:"type:varchar(20);not null" json:"product_type"`
	ProductID     uint            `gorm:"not null" json:"product_id"`
	Qty           int             `gorm:"not null" json:"qty"`
	Price         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	Product       *ProductDetails `gorm:"-" json:"product_details,omitempty"`
}

// VoidedTransaction keeps the history of a voided sale after its rows are deleted.
type VoidedTransaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"transaction_id"`
	CashierID     uuid.UUID       `gorm:"type:uuid;not null" json:"cashier_id"`
	VoidedBy      uuid.UUID       `gorm:"type:uuid;not null" json:"voided_by"`
	Reason        string          `gorm:"type:text" json:"reason"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
	Snapshot      string          `gorm:"type:text" json:"snapshot"`
	SoldAt        time.Time       `json:"sold_at"`
	VoidedAt      time.Time       `gorm:"index" json:"voided_at"`
}

// TodayStats summarizes active transactions since the start of the day.
type TodayStats struct {
	TotalSales         decimal.Decimal `json:"total_sales"`
	TotalTransactions  int64           `json:"total_transactions"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
}
