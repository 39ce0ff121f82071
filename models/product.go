package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product and Service are catalog entries. Invoices only read them to resolve line items.
type Product struct {
	ID          string          `gorm:"type:char(36);primary_key" json:"id"`
	UserId      string          `gorm:"type:char(36);index;not null" json:"user_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Sku         string          `gorm:"size:64" json:"sku"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Service struct {
	ID           string          `gorm:"type:char(36);primary_key" json:"id"`
	UserId       string          `gorm:"type:char(36);index;not null" json:"user_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Duration     int             `gorm:"default:0" json:"duration"`
	DurationType DurationType    `gorm:"type:enum('minutes','hours','days');default:'minutes'" json:"duration_type"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
