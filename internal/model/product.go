package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductKind distinguishes the two product tables that share the stock rules.
type ProductKind string

const (
	KindLaptop    ProductKind = "laptop"
	KindAccessory ProductKind = "accessory"
)

// ProductKinds lists every kind in a stable order.
var ProductKinds = []ProductKind{KindLaptop, KindAccessory}

func (k ProductKind) Valid() bool {
	return k == KindLaptop || k == KindAccessory
}

// Table returns the table holding the stock counter for this kind.
func (k ProductKind) Table() string {
	switch k {
	case KindLaptop:
		return "laptops"
	case KindAccessory:
		return "accessories"
	}
	return ""
}

type LaptopCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
}

type Laptop struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	Brand      string          `gorm:"type:varchar(100)" json:"brand"`
	CategoryID *uint           `gorm:"index" json:"category_id,omitempty"`
	Category   *LaptopCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Price      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	Stock      int             `gorm:"not null;default:0;check:chk_laptops_stock,stock >= 0" json:"stock"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Accessory struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Category  string          `gorm:"type:varchar(100)" json:"category"`
	Price     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0;check:chk_accessories_stock,stock >= 0" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductSnapshot is the kind-agnostic view of a catalog row.
type ProductSnapshot struct {
	ID       uint            `json:"id"`
	Kind     ProductKind     `json:"product_type"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category,omitempty"`
}

// ProductDetails is the catalog view attached to a transaction item on read.
// It reflects the product as it is now, not as it was at sale time.
type ProductDetails struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
}

func (s ProductSnapshot) Details() ProductDetails {
	return ProductDetails{Name: s.Name, Price: s.Price, Category: s.Category}
}

func (l *Laptop) Snapshot() ProductSnapshot {
	s := ProductSnapshot{ID: l.ID, Kind: KindLaptop, Name: l.Name, Price: l.Price, Stock: l.Stock}
	if l.Category != nil {
		s.Category = l.Category.Name
	}
	return s
}

func (a *Accessory) Snapshot() ProductSnapshot {
	return ProductSnapshot{ID: a.ID, Kind: KindAccessory, Name: a.Name, Price: a.Price, Stock: a.Stock, Category: a.Category}
}
